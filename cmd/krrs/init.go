package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	krrs "github.com/sapienskid/KRRS"
	"github.com/sapienskid/KRRS/llm"
)

func initCmd() {
	fmt.Println(`
  ✦  KRRS Setup
  ─────────────────────────────`)

	home := krrs.Home()
	envPath := home + "/env"

	// Load existing keys if env file exists.
	existing := loadExistingEnv(envPath)
	if len(existing) > 0 {
		fmt.Println("\n  Found existing configuration at", envPath)
		for k, v := range existing {
			fmt.Printf("    %s = %s\n", k, maskKey(v))
		}
		fmt.Println()
		if !confirm("  Reconfigure?") {
			fmt.Println("\n  Keeping existing configuration. You're all set!")
			printNextSteps()
			return
		}
	}

	scanner := bufio.NewScanner(os.Stdin)

	// Anthropic API key (required).
	fmt.Println("\n  Anthropic API key (required)")
	fmt.Println("  Get one at: https://console.anthropic.com/settings/keys")
	fmt.Print("\n  ANTHROPIC_API_KEY: ")
	var apiKey string
	if scanner.Scan() {
		apiKey = strings.TrimSpace(scanner.Text())
	}

	if apiKey == "" {
		fmt.Fprintln(os.Stderr, "\n  Error: API key is required. Run 'krrs init' to try again.")
		os.Exit(1)
	}

	// Validate the key.
	fmt.Print("  Validating key... ")
	client := llm.NewAnthropic(llm.WithAPIKey(apiKey))
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	err := client.ValidateKey(ctx)
	cancel()

	if err != nil {
		fmt.Println("failed")
		fmt.Fprintf(os.Stderr, "  Error: %v\n", err)
		fmt.Fprintln(os.Stderr, "  Please check the key and try again.")
		os.Exit(1)
	}
	fmt.Println("valid!")

	// Tenant id (required). Retrieval filters on it, so every user's
	// documents stay isolated.
	fmt.Println("\n  User id (required, scopes your knowledge base)")
	fmt.Print("\n  USER_ID: ")
	var userID string
	if scanner.Scan() {
		userID = strings.TrimSpace(scanner.Text())
	}
	if userID == "" || userID == "default_user" {
		fmt.Fprintln(os.Stderr, "\n  Error: a real user id is required.")
		os.Exit(1)
	}

	// Tavily API key (optional, enables web search).
	fmt.Println("\n  Tavily API key (optional, press Enter to skip)")
	fmt.Println("  Enables web search; get one at: https://tavily.com")
	fmt.Print("\n  TAVILY_API_KEY: ")
	var tavilyKey string
	if scanner.Scan() {
		tavilyKey = strings.TrimSpace(scanner.Text())
	}

	if err := krrs.EnsureHome(); err != nil {
		fmt.Fprintf(os.Stderr, "\n  Error creating %s: %v\n", home, err)
		os.Exit(1)
	}

	// Merge: only overwrite keys the user provided.
	existing["ANTHROPIC_API_KEY"] = apiKey
	existing["USER_ID"] = userID
	if tavilyKey != "" {
		existing["TAVILY_API_KEY"] = tavilyKey
		existing["ENABLE_WEB_SEARCH"] = "true"
		existing["SEARCH_PROVIDER"] = "tavily"
	}

	if err := writeEnvFile(envPath, existing); err != nil {
		fmt.Fprintf(os.Stderr, "\n  Error writing %s: %v\n", envPath, err)
		os.Exit(1)
	}

	fmt.Printf("\n  Configuration saved to %s\n", envPath)
	printNextSteps()
}

func printNextSteps() {
	fmt.Print(`
  Next steps:
    krrs index <url>     Index content into your knowledge base
    krrs ask "<q>"       Ask a question
    krrs serve           Start the HTTP API server
`)
}

func confirm(prompt string) bool {
	fmt.Printf("%s [y/N] ", prompt)
	scanner := bufio.NewScanner(os.Stdin)
	if scanner.Scan() {
		ans := strings.ToLower(strings.TrimSpace(scanner.Text()))
		return ans == "y" || ans == "yes"
	}
	return false
}

func maskKey(key string) string {
	if len(key) <= 8 {
		return "****"
	}
	return key[:4] + "..." + key[len(key)-4:]
}

func loadExistingEnv(path string) map[string]string {
	env := make(map[string]string)
	f, err := os.Open(path)
	if err != nil {
		return env
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		key, val, ok := strings.Cut(line, "=")
		if !ok {
			continue
		}
		env[strings.TrimSpace(key)] = strings.TrimSpace(val)
	}
	return env
}

func writeEnvFile(path string, env map[string]string) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	w := bufio.NewWriter(f)
	w.WriteString("# KRRS configuration, managed by 'krrs init'\n")

	// Write in a stable order: known keys first.
	order := []string{"ANTHROPIC_API_KEY", "USER_ID", "TAVILY_API_KEY", "ENABLE_WEB_SEARCH", "SEARCH_PROVIDER"}
	written := make(map[string]bool)
	for _, k := range order {
		if v, ok := env[k]; ok && v != "" {
			fmt.Fprintf(w, "%s=%s\n", k, v)
			written[k] = true
		}
	}
	// Write any other keys that may have been in the original file.
	for k, v := range env {
		if !written[k] && v != "" {
			fmt.Fprintf(w, "%s=%s\n", k, v)
		}
	}

	return w.Flush()
}
