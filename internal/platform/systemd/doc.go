// Package systemd stops, starts and enables units and reports their state.
//
// On the local host units are driven over D-Bus; for remote hosts, or when
// the system bus is unreachable, the same operations go through systemctl.
package systemd
