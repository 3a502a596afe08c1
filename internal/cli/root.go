package cli

import "fmt"

// Version is set at build time via -ldflags "-X clipdeck/internal/cli.Version=v1.2.3".
var Version = "dev"

func Run(args []string) error {
	if len(args) == 0 {
		return runGallery(nil)
	}

	switch args[0] {
	case "gallery":
		return runGallery(args[1:])
	case "list":
		return runList(args[1:])
	case "download":
		return runDownload(args[1:])
	case "hook":
		return runHook(args[1:])
	case "settings":
		return runSettings(args[1:])
	case "init":
		return runInit(args[1:])
	case "doctor":
		return runDoctor(args[1:])
	case "version", "--version":
		fmt.Println("clipdeck " + Version)
		return nil
	case "help", "-h", "--help":
		printRootUsage()
		return nil
	default:
		printRootUsage()
		return fmt.Errorf("unknown command %q", args[0])
	}
}

func printRootUsage() {
	fmt.Println("clipdeck: terminal gallery for generated clips")
	fmt.Println()
	fmt.Println("Quick Start:")
	fmt.Println("  clipdeck init")
	fmt.Println("  clipdeck gallery")
	fmt.Println("  clipdeck download --all")
	fmt.Println()
	fmt.Println("Commands:")
	fmt.Println("  gallery   interactive clip gallery (default when no command is given)")
	fmt.Println("  list      print clips from the configured source")
	fmt.Println("  download  save clip(s) into the download directory")
	fmt.Println("  hook      request a viral hook overlay for a clip")
	fmt.Println("  settings  show/update settings")
	fmt.Println("  init      create config + download dir and run checks")
	fmt.Println("  doctor    check source reachability and local directories")
	fmt.Println("  version   print version")
	fmt.Println()
	fmt.Println("Notes:")
	fmt.Println("  - Use --json on commands for machine-readable output")
	fmt.Println("  - Clips are addressed as --job <job_id> --clip <n>, n starting at 1")
	fmt.Println("  - Environment overrides (also read from .env): " +
		"CLIPDECK_SOURCE, CLIPDECK_API_URL, CLIPDECK_DOWNLOAD_DIR, AWS_S3_BUCKET, AWS_REGION")
}
