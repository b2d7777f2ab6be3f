// Package config loads netblocker settings.
//
// # Settings File
//
// Settings are read from a TOML file, /etc/netblocker/netblocker.toml by
// default or the path in NETBLOCKER_SETTINGS. A missing file is not an
// error; every key has a default:
//
//	rules_file = "rules.conf"      # relative to the settings directory
//	cache_size = 1024
//	audit_log  = ""                # JSONL decision log, disabled when empty
//
//	[resolver]
//	mode    = "system"             # or "dns"
//	servers = ["127.0.0.53:53"]
//	timeout = "5s"
//
//	[proxy]
//	listen = "127.0.0.1:3128"
//
//	[reload]
//	poll_interval = "0s"           # 0 disables mtime polling
//
// # Rules Path
//
// NETBLOCKER_CONF overrides rules_file entirely. Otherwise a relative
// rules_file is joined onto the settings directory with SecureJoin so it
// cannot climb out of it.
package config
