package privd

import "context"

// Typed wrappers for the daemon command namespaces. Command names and param
// keys are the wire contract with stackpilotd: case-sensitive, no synonyms.

// Ping issues the lightweight authenticated readiness probe.
func (c *Client) Ping(ctx context.Context) error {
	_, err := c.Execute(ctx, "system.ping", nil, "readiness probe")
	return err
}

// --- package management ---

func (c *Client) InstallPackages(ctx context.Context, packages []string) error {
	_, err := c.Execute(ctx, "package.install", map[string]any{
		"packages": packages,
	}, "install system packages")
	return err
}

func (c *Client) UpdatePackages(ctx context.Context) error {
	_, err := c.Execute(ctx, "package.update", nil, "refresh package index")
	return err
}

func (c *Client) AddRepository(ctx context.Context, repository string) error {
	_, err := c.Execute(ctx, "package.add_repository", map[string]any{
		"repository": repository,
	}, "add package repository")
	return err
}

// --- PHP ---

func (c *Client) InstallPHPVersion(ctx context.Context, version string) error {
	_, err := c.Execute(ctx, "php.install_version", map[string]any{
		"version": version,
	}, "install PHP "+version)
	return err
}

func (c *Client) InstallPHPExtension(ctx context.Context, version, extension string) error {
	_, err := c.Execute(ctx, "php.install_extension", map[string]any{
		"version":   version,
		"extension": extension,
	}, "install PHP extension "+extension)
	return err
}

// --- service control ---

func (c *Client) StartService(ctx context.Context, name string) error {
	_, err := c.Execute(ctx, "service.start", map[string]any{"name": name}, "start service "+name)
	return err
}

func (c *Client) StopService(ctx context.Context, name string) error {
	_, err := c.Execute(ctx, "service.stop", map[string]any{"name": name}, "stop service "+name)
	return err
}

func (c *Client) EnableService(ctx context.Context, name string) error {
	_, err := c.Execute(ctx, "service.enable", map[string]any{"name": name}, "enable service "+name)
	return err
}

func (c *Client) RestartService(ctx context.Context, name string) error {
	_, err := c.Execute(ctx, "service.restart", map[string]any{"name": name}, "restart service "+name)
	return err
}

func (c *Client) ReloadService(ctx context.Context, name string) error {
	_, err := c.Execute(ctx, "service.reload", map[string]any{"name": name}, "reload service "+name)
	return err
}

// --- file operations ---

func (c *Client) WriteFile(ctx context.Context, path, content, mode string) error {
	_, err := c.Execute(ctx, "file.write", map[string]any{
		"path":    path,
		"content": content,
		"mode":    mode,
	}, "write "+path)
	return err
}

func (c *Client) Mkdir(ctx context.Context, path, mode string) error {
	_, err := c.Execute(ctx, "file.mkdir", map[string]any{
		"path": path,
		"mode": mode,
	}, "create directory "+path)
	return err
}

func (c *Client) DeleteFile(ctx context.Context, path string) error {
	_, err := c.Execute(ctx, "file.delete", map[string]any{"path": path}, "delete "+path)
	return err
}

func (c *Client) Chmod(ctx context.Context, path, mode string) error {
	_, err := c.Execute(ctx, "file.chmod", map[string]any{
		"path": path,
		"mode": mode,
	}, "chmod "+path)
	return err
}

// --- nginx ---

func (c *Client) EnableSite(ctx context.Context, site string) error {
	_, err := c.Execute(ctx, "nginx.enable_site", map[string]any{"site": site}, "enable nginx site "+site)
	return err
}

func (c *Client) DisableSite(ctx context.Context, site string) error {
	_, err := c.Execute(ctx, "nginx.disable_site", map[string]any{"site": site}, "disable nginx site "+site)
	return err
}

func (c *Client) TestNginxConfig(ctx context.Context) error {
	_, err := c.Execute(ctx, "nginx.test_config", nil, "validate nginx configuration")
	return err
}

// --- TLS certificates ---

func (c *Client) RequestLetsEncrypt(ctx context.Context, domain, email string) error {
	_, err := c.Execute(ctx, "ssl.request_letsencrypt", map[string]any{
		"domain": domain,
		"email":  email,
	}, "request Let's Encrypt certificate for "+domain)
	return err
}

func (c *Client) InstallCert(ctx context.Context, domain, certificate, privateKey string) error {
	_, err := c.Execute(ctx, "ssl.install_cert", map[string]any{
		"domain":      domain,
		"certificate": certificate,
		"private_key": privateKey,
	}, "install certificate for "+domain)
	return err
}

// --- database administration ---

func (c *Client) CreateDatabase(ctx context.Context, name string) error {
	_, err := c.Execute(ctx, "database.create_db", map[string]any{"name": name}, "create database "+name)
	return err
}

func (c *Client) CreateDatabaseUser(ctx context.Context, username, password string) error {
	_, err := c.Execute(ctx, "database.create_user", map[string]any{
		"username": username,
		"password": password,
	}, "create database user "+username)
	return err
}

func (c *Client) GrantPrivileges(ctx context.Context, database, username string) error {
	_, err := c.Execute(ctx, "database.grant_privileges", map[string]any{
		"database": database,
		"username": username,
	}, "grant privileges on "+database+" to "+username)
	return err
}
