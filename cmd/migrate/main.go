// migrate applies or rolls back the embedded SQL migrations.
package main

import (
	"errors"
	"flag"
	"fmt"
	"os"

	"iot-monitor/confs"
	"iot-monitor/db"
)

func main() {
	direction := flag.String("direction", "up", "Migration direction: up or down")
	flag.Parse()

	cfg, err := confs.LoadConfig()
	if err != nil {
		fmt.Fprintln(os.Stderr, "config:", err)
		os.Exit(1)
	}
	dsn, err := db.DSN(cfg)
	if err != nil {
		fmt.Fprintln(os.Stderr, "database:", err)
		os.Exit(1)
	}

	if err := db.Migrate(dsn, *direction); err != nil {
		if errors.Is(err, db.ErrNoChange) {
			return
		}
		fmt.Fprintln(os.Stderr, "migrate:", err)
		os.Exit(1)
	}
}
