package fallback

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
)

// Runner executes one local privileged command and returns its combined
// output.
type Runner func(ctx context.Context, name string, args ...string) ([]byte, error)

func execRunner(ctx context.Context, name string, args ...string) ([]byte, error) {
	return exec.CommandContext(ctx, name, args...).CombinedOutput()
}

// Local is the direct-execution twin of the daemon command set. It assumes
// the installer itself holds the required privilege (root or sudo) and is
// only reached when the daemon path is unusable or has failed.
type Local struct {
	SitesAvailable string
	SitesEnabled   string

	run Runner
}

// NewLocal returns a Local with the Debian nginx layout.
func NewLocal() *Local {
	return &Local{
		SitesAvailable: "/etc/nginx/sites-available",
		SitesEnabled:   "/etc/nginx/sites-enabled",
		run:            execRunner,
	}
}

func (l *Local) command(ctx context.Context, desc, name string, args ...string) error {
	slog.Info("direct execution", "desc", desc, "cmd", name, "args", strings.Join(args, " "))
	out, err := l.run(ctx, name, args...)
	if err != nil {
		return fmt.Errorf("%s: %w: %s", desc, err, strings.TrimSpace(string(out)))
	}
	return nil
}

// --- package management ---

func (l *Local) InstallPackages(ctx context.Context, packages []string) error {
	args := append([]string{"install", "-y"}, packages...)
	return l.command(ctx, "install packages", "apt-get", args...)
}

func (l *Local) UpdatePackages(ctx context.Context) error {
	return l.command(ctx, "refresh package index", "apt-get", "update")
}

func (l *Local) AddRepository(ctx context.Context, repository string) error {
	return l.command(ctx, "add package repository", "add-apt-repository", "-y", repository)
}

// --- PHP ---

func (l *Local) InstallPHPVersion(ctx context.Context, version string) error {
	return l.InstallPackages(ctx, []string{
		"php" + version + "-fpm",
		"php" + version + "-cli",
	})
}

func (l *Local) InstallPHPExtension(ctx context.Context, version, extension string) error {
	return l.InstallPackages(ctx, []string{"php" + version + "-" + extension})
}

// --- service control ---

func (l *Local) StartService(ctx context.Context, name string) error {
	return l.command(ctx, "start service "+name, "systemctl", "start", name)
}

func (l *Local) StopService(ctx context.Context, name string) error {
	return l.command(ctx, "stop service "+name, "systemctl", "stop", name)
}

func (l *Local) EnableService(ctx context.Context, name string) error {
	return l.command(ctx, "enable service "+name, "systemctl", "enable", name)
}

func (l *Local) RestartService(ctx context.Context, name string) error {
	return l.command(ctx, "restart service "+name, "systemctl", "restart", name)
}

func (l *Local) ReloadService(ctx context.Context, name string) error {
	return l.command(ctx, "reload service "+name, "systemctl", "reload", name)
}

// --- file operations (no subprocess needed) ---

func (l *Local) WriteFile(ctx context.Context, path, content, mode string) error {
	perm, err := parseMode(mode)
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, []byte(content), perm); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	// WriteFile only applies perm on create; make mode authoritative.
	return os.Chmod(path, perm)
}

func (l *Local) Mkdir(ctx context.Context, path, mode string) error {
	perm, err := parseMode(mode)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(path, perm); err != nil {
		return fmt.Errorf("mkdir %s: %w", path, err)
	}
	return nil
}

func (l *Local) DeleteFile(ctx context.Context, path string) error {
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("delete %s: %w", path, err)
	}
	return nil
}

func (l *Local) Chmod(ctx context.Context, path, mode string) error {
	perm, err := parseMode(mode)
	if err != nil {
		return err
	}
	if err := os.Chmod(path, perm); err != nil {
		return fmt.Errorf("chmod %s: %w", path, err)
	}
	return nil
}

func parseMode(mode string) (os.FileMode, error) {
	n, err := strconv.ParseUint(mode, 8, 32)
	if err != nil {
		return 0, fmt.Errorf("invalid file mode %q: %w", mode, err)
	}
	return os.FileMode(n), nil
}

// --- nginx ---

func (l *Local) EnableSite(ctx context.Context, site string) error {
	target := filepath.Join(l.SitesAvailable, site)
	link := filepath.Join(l.SitesEnabled, site)
	if _, err := os.Lstat(link); err == nil {
		return nil // already enabled
	}
	if err := os.Symlink(target, link); err != nil {
		return fmt.Errorf("enable site %s: %w", site, err)
	}
	return nil
}

func (l *Local) DisableSite(ctx context.Context, site string) error {
	link := filepath.Join(l.SitesEnabled, site)
	if err := os.Remove(link); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("disable site %s: %w", site, err)
	}
	return nil
}

func (l *Local) TestNginxConfig(ctx context.Context) error {
	return l.command(ctx, "validate nginx configuration", "nginx", "-t")
}

// --- TLS certificates ---

func (l *Local) RequestLetsEncrypt(ctx context.Context, domain, email string) error {
	return l.command(ctx, "request certificate for "+domain, "certbot",
		"certonly", "--nginx", "--non-interactive", "--agree-tos",
		"-m", email, "-d", domain)
}

func (l *Local) InstallCert(ctx context.Context, domain, certificate, privateKey string) error {
	dir := filepath.Join("/etc/ssl/stackpilot", domain)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return fmt.Errorf("create cert dir: %w", err)
	}
	if err := os.WriteFile(filepath.Join(dir, "fullchain.pem"), []byte(certificate), 0644); err != nil {
		return fmt.Errorf("install certificate for %s: %w", domain, err)
	}
	if err := os.WriteFile(filepath.Join(dir, "privkey.pem"), []byte(privateKey), 0600); err != nil {
		return fmt.Errorf("install private key for %s: %w", domain, err)
	}
	return nil
}

// --- database administration ---

// escapeSQL escapes a value for interpolation between single quotes.
// Backslashes go first so the quote escapes are not doubled.
func escapeSQL(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	return strings.ReplaceAll(s, `'`, `\'`)
}

// checkIdentifier rejects names the backtick quoting below cannot carry.
func checkIdentifier(kind, name string) error {
	if name == "" || strings.Contains(name, "`") {
		return fmt.Errorf("invalid %s name %q", kind, name)
	}
	return nil
}

func (l *Local) CreateDatabase(ctx context.Context, name string) error {
	if err := checkIdentifier("database", name); err != nil {
		return err
	}
	stmt := fmt.Sprintf("CREATE DATABASE IF NOT EXISTS `%s`", name)
	return l.command(ctx, "create database "+name, "mysql", "-e", stmt)
}

func (l *Local) CreateDatabaseUser(ctx context.Context, username, password string) error {
	stmt := fmt.Sprintf("CREATE USER IF NOT EXISTS '%s'@'localhost' IDENTIFIED BY '%s'",
		escapeSQL(username), escapeSQL(password))
	return l.command(ctx, "create database user "+username, "mysql", "-e", stmt)
}

func (l *Local) GrantPrivileges(ctx context.Context, database, username string) error {
	if err := checkIdentifier("database", database); err != nil {
		return err
	}
	stmt := fmt.Sprintf("GRANT ALL PRIVILEGES ON `%s`.* TO '%s'@'localhost'; FLUSH PRIVILEGES",
		database, escapeSQL(username))
	return l.command(ctx, "grant privileges on "+database, "mysql", "-e", stmt)
}
