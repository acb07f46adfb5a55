// Package systemd renders unit files for the long-running pslang commands
// and detects later edits to installed units.
package systemd

import (
	"fmt"
	"path/filepath"
)

// Unit names written by pslang init --systemd.
const (
	ServeUnitName = "pslang-serve.service"
	WatchUnitName = "pslang-watch.service"
)

// UnitConfig fills the unit templates.
type UnitConfig struct {
	Binary string // absolute path to the pslang binary
	Home   string // PSLANG_HOME for the service
	Inbox  string // root of the inbox/outbox layout
}

// ServeUnit returns the unit for pslang serve.
func ServeUnit(c UnitConfig) string {
	return fmt.Sprintf(`[Unit]
Description=pslang projection service (gRPC)
After=network-online.target
Wants=network-online.target

[Service]
Type=simple
Environment=PSLANG_HOME=%s
ExecStart=%s serve
Restart=on-failure
RestartSec=2
NoNewPrivileges=true
PrivateTmp=true
ProtectSystem=strict
ProtectHome=read-only
ReadWritePaths=%s

[Install]
WantedBy=multi-user.target
`, c.Home, c.Binary, c.Home)
}

// WatchUnit returns the unit for pslang watch. The inbox root must be
// writable; cross-device moves under bind mounts are handled by the daemon.
func WatchUnit(c UnitConfig) string {
	return fmt.Sprintf(`[Unit]
Description=pslang inbox projection daemon
After=local-fs.target

[Service]
Type=simple
Environment=PSLANG_HOME=%s
ExecStart=%s watch --root %s
Restart=on-failure
RestartSec=2
NoNewPrivileges=true
PrivateTmp=true
PrivateNetwork=true
ProtectSystem=strict
ProtectHome=read-only
ReadWritePaths=%s %s

[Install]
WantedBy=multi-user.target
`, c.Home, c.Binary, c.Inbox, c.Home, c.Inbox)
}

// Units maps unit file names to their content.
func Units(c UnitConfig) map[string]string {
	return map[string]string{
		ServeUnitName: ServeUnit(c),
		WatchUnitName: WatchUnit(c),
	}
}

// HashPath is where the install-time hash of unitPath is kept.
func HashPath(unitPath string) string {
	return filepath.Join(filepath.Dir(unitPath), "."+filepath.Base(unitPath)+".sha256")
}
