package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"

	"speedtest-core/internal/app/server"
	"speedtest-core/internal/config/loader"
	corelog "speedtest-core/internal/core/log"
	"speedtest-core/internal/version"
)

func main() {
	var (
		configPath   = flag.String("config", "", "Path to configuration file")
		exportConfig = flag.String("export-config", "", "Write a configuration template to this path and exit")
		showVersion  = flag.Bool("version", false, "Show version information")
		showHelp     = flag.Bool("help", false, "Show help information")
	)
	flag.Parse()

	if *showHelp {
		fmt.Println("LAN Speed Test Server")
		fmt.Println("Usage: server [options]")
		fmt.Println()
		fmt.Println("Options:")
		flag.PrintDefaults()
		fmt.Println()
		fmt.Println("Examples:")
		fmt.Println("  server")
		fmt.Println("  server -config ./server.yaml")
		fmt.Println("  server -export-config ./server.yaml")
		return
	}
	if *showVersion {
		fmt.Printf("Speed Test Server %s\n", version.GetVersion())
		return
	}
	if *exportConfig != "" {
		if err := loader.ExportTemplate(*exportConfig); err != nil {
			fmt.Fprintf(os.Stderr, "Failed to export config template: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("Configuration template written to %s\n", *exportConfig)
		return
	}

	absConfigPath := *configPath
	if absConfigPath != "" {
		var err error
		if absConfigPath, err = filepath.Abs(absConfigPath); err != nil {
			corelog.Fatalf("Failed to resolve config path: %v", err)
		}
	}

	config, err := server.LoadConfig(absConfigPath)
	if err != nil {
		corelog.Fatalf("Failed to load configuration: %v", err)
	}

	srv, err := server.New(config, absConfigPath)
	if err != nil {
		corelog.Fatalf("Failed to create server: %v", err)
	}

	if err := srv.Run(); err != nil {
		corelog.Fatalf("Failed to run server: %v", err)
	}
}
