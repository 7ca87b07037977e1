/*
Package logging sets up the dockshift logger.

Every line goes to the console and, when a log file is configured, is
duplicated to that file so a failed run can be diagnosed afterwards. The
file keeps everything down to debug level (including the output of each
external command) while the console honours the configured level.

	logger, closer, err := logging.Init(logging.Config{
		Level: logging.InfoLevel,
		File:  "/var/log/dockshift.log",
		RunID: runID,
	})
	defer closer.Close()

Child loggers carry the run id and, through [WithPhase], the phase name.
*/
package logging
