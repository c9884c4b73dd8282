// Command probe checks that the knowledge-base backend is reachable and
// prints its file list.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"time"

	"kb-console/internal/config"
	"kb-console/pkg/kbclient"

	"github.com/fatih/color"
)

func main() {
	cfg := config.Load()

	baseURL := flag.String("url", cfg.Backend.BaseURL, "backend base URL")
	tag := flag.String("tag", "", "only list files with this tag")
	timeout := flag.Duration("timeout", 15*time.Second, "per-request timeout")
	flag.Parse()

	client := kbclient.New(*baseURL, *timeout)
	ctx := context.Background()

	color.Cyan("🔎 Probing %s\n", *baseURL)

	color.Yellow("\n1. Health check")
	info, err := client.Health(ctx)
	if err != nil {
		color.Red("Backend connection failed: %v", err)
		os.Exit(1)
	}
	color.Green("Backend connection OK")
	prettyPrint(info)

	color.Yellow("\n2. File list")
	files, err := client.ListFiles(ctx, *tag)
	if err != nil {
		color.Red("Load failed: %v", err)
		os.Exit(1)
	}

	tags := make(map[string]struct{})
	for _, f := range files {
		if f.Tag != "" {
			tags[f.Tag] = struct{}{}
		}
		label := f.Tag
		if label == "" {
			label = "-"
		}
		fmt.Printf("  %-36s %-40s %-20s %s\n", f.Id, f.FileName, label, f.UploadTime)
	}
	color.Green("%d files, %d tags", len(files), len(tags))
}

func prettyPrint(v interface{}) {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		fmt.Printf("%v\n", v)
		return
	}
	fmt.Println(string(b))
}
