package main

import (
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/joho/godotenv"

	"github.com/varunock/shareport/internal/config"
	"github.com/varunock/shareport/internal/netinfo"
	"github.com/varunock/shareport/internal/server"
	"github.com/varunock/shareport/internal/services"
	"github.com/varunock/shareport/internal/utils"
)

func main() {
	// Load .env file if it exists
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found or error loading it, using environment variables")
	}

	cfg := config.Load()

	if err := os.MkdirAll(cfg.UploadDir, 0o755); err != nil {
		log.Fatalf("Failed to create shared folder %s: %v", cfg.UploadDir, err)
	}

	code, err := utils.GenerateConnectionCode(cfg.CodeLength)
	if err != nil {
		log.Fatalf("Failed to generate connection code: %v", err)
	}

	cleanup := services.NewCleanupService(cfg)
	cleanup.Start()

	app := server.New(cfg, code)

	printBanner(cfg, code)

	log.Fatal(app.Listen(cfg.Host + ":" + cfg.Port))
}

func printBanner(cfg *config.Config, code string) {
	ip := netinfo.LocalIP()
	url := fmt.Sprintf("http://%s:%s", ip, cfg.Port)
	rule := strings.Repeat("=", 60)

	fmt.Println()
	fmt.Println(rule)
	fmt.Println("SHAREPORT - LAN FILE SHARING")
	fmt.Println(rule)
	fmt.Printf("Server running at: %s\n", url)
	fmt.Printf("Connection code:   %s\n", code)
	fmt.Printf("Shared folder:     %s\n", cfg.UploadDir)
	fmt.Printf("Max upload size:   %s\n", humanize.Bytes(uint64(cfg.MaxUploadSize)))
	fmt.Println(rule)
	fmt.Println("\nScan QR code to connect:")
	netinfo.PrintQR(os.Stdout, url+"#code="+code)
	fmt.Println(rule)
	fmt.Println("Share the URL and connection code with devices on this network")
	fmt.Println("Press Ctrl+C to stop the server")
	fmt.Println(rule)
	fmt.Println()
}
