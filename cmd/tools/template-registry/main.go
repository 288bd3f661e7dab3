// cmd/tools/template-registry/main.go
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"notification-gateway/internal/common/config"
	"notification-gateway/internal/hub"
	"notification-gateway/internal/push/templates"
	"notification-gateway/pkg/registry"
)

var registryPath string

func main() {
	setCmd := flag.NewFlagSet("set", flag.ExitOnError)
	validateCmd := flag.NewFlagSet("validate", flag.ExitOnError)

	platform := setCmd.String("platform", "", "Platform (apns or fcmv1)")
	kind := setCmd.String("kind", "", "Template kind (normal, critical, legacy)")
	bodyFile := setCmd.String("body-file", "", "File holding the template body JSON")
	description := setCmd.String("description", "", "Description")
	setCmd.StringVar(&registryPath, "path", "configs/templates.json", "Path to registry file")

	validateCmd.StringVar(&registryPath, "path", "configs/templates.json", "Path to registry file")

	if len(os.Args) < 2 {
		help()
		os.Exit(1)
	}

	switch os.Args[1] {
	case "set":
		setCmd.Parse(os.Args[2:])
		if *platform == "" || *kind == "" || *bodyFile == "" {
			fmt.Println("Error: platform, kind, and body-file are required for set.")
			setCmd.Usage()
			os.Exit(1)
		}
		body, err := os.ReadFile(*bodyFile)
		if err != nil {
			fmt.Printf("Error reading body file: %v\n", err)
			os.Exit(1)
		}
		entry := registry.TemplateEntry{
			Platform:    strings.ToLower(*platform),
			Kind:        strings.ToLower(*kind),
			Description: *description,
			Body:        strings.TrimSpace(string(body)),
		}
		if err := setTemplate(entry); err != nil {
			fmt.Printf("Error setting template: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("Set %s/%s template\n", entry.Platform, entry.Kind)

	case "validate":
		validateCmd.Parse(os.Args[2:])
		if err := validateRegistry(); err != nil {
			fmt.Printf("Registry validation failed: %v\n", err)
			os.Exit(1)
		}

	case "help":
		fallthrough
	default:
		help()
	}
}

func checkEntry(e registry.TemplateEntry) error {
	switch hub.Platform(e.Platform) {
	case hub.PlatformApns, hub.PlatformFcm:
	default:
		return fmt.Errorf("unknown platform %q", e.Platform)
	}
	switch templates.Kind(e.Kind) {
	case templates.KindNormal, templates.KindCritical, templates.KindLegacy:
	default:
		return fmt.Errorf("unknown kind %q", e.Kind)
	}
	if !json.Valid([]byte(e.Body)) {
		return fmt.Errorf("%s/%s body is not valid JSON", e.Platform, e.Kind)
	}
	return nil
}

// setTemplate replaces the entry for (platform, kind) or appends it.
func setTemplate(entry registry.TemplateEntry) error {
	if err := checkEntry(entry); err != nil {
		return err
	}

	reg, err := registry.LoadRegistry(registryPath)
	if err != nil {
		if os.IsNotExist(err) {
			reg = &registry.TemplateRegistry{Version: "1.0.0", Templates: []registry.TemplateEntry{}}
		} else {
			return fmt.Errorf("failed to load registry: %w", err)
		}
	}

	replaced := false
	for i := range reg.Templates {
		if strings.EqualFold(reg.Templates[i].Platform, entry.Platform) && strings.EqualFold(reg.Templates[i].Kind, entry.Kind) {
			reg.Templates[i] = entry
			replaced = true
			break
		}
	}
	if !replaced {
		reg.Templates = append(reg.Templates, entry)
	}

	reg.LastUpdated = time.Now().Format(time.RFC3339)
	return saveRegistry(reg, registryPath)
}

func validateRegistry() error {
	reg, err := registry.LoadRegistry(registryPath)
	if err != nil {
		return fmt.Errorf("failed to load registry: %w", err)
	}

	seen := make(map[string]bool)
	for _, entry := range reg.Templates {
		key := strings.ToLower(entry.Platform + "/" + entry.Kind)
		if seen[key] {
			return fmt.Errorf("duplicate template: %s", key)
		}
		seen[key] = true

		if err := checkEntry(entry); err != nil {
			return err
		}
	}

	// Same load path the gateway uses at startup.
	if _, err := templates.NewCatalog(config.TemplateConfig{RegistryPath: registryPath}); err != nil {
		return err
	}

	fmt.Printf("Registry validation passed. Found %d templates.\n", len(reg.Templates))
	return nil
}

func saveRegistry(reg *registry.TemplateRegistry, path string) error {
	data, err := json.MarshalIndent(reg, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal registry: %w", err)
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write registry file: %w", err)
	}
	return nil
}

func help() {
	fmt.Print(`
Usage: template-registry <command> [flags]

Commands:
  set       Add or replace a payload template
  validate  Validate the registry file
  help      Show this help message

Examples:
  template-registry set -platform apns -kind critical -body-file apns-critical.json
  template-registry validate -path configs/templates.json
`)
}
