// Package logging provides subsystem-keyed structured logging for the
// validator, built on log/slog.
//
// Every entry carries a subsystem attribute so that output from the
// catalogue watcher, the HTTP service and the validation engine can be told
// apart:
//
//	logging.InitForCLI(logging.LevelInfo, os.Stderr)
//
//	logging.Info("Catalogue", "Loaded %d hosts from %s", n, path)
//	logging.Debug("Transport", "GET %s", url)
//	logging.Warn("GitHubTags", "Tag list unavailable for %s", api)
//	logging.Error("Server", err, "Failed to render report %s", id)
//
// The long-running service uses InitForServer with FormatJSON so that log
// collectors can parse entries.
//
// Messages below the configured level are dropped before formatting.
package logging
