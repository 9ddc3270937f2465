// cmd/tools/registry-updater/main.go
package main

import (
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"

	"intelligence-workers/internal/common/validation"
	"intelligence-workers/pkg/registry"
)

const defaultPath = "configs/reference-data.json"

func main() {
	initCmd := flag.NewFlagSet("init", flag.ExitOnError)
	neighborCmd := flag.NewFlagSet("add-neighbor", flag.ExitOnError)
	multiplierCmd := flag.NewFlagSet("set-multiplier", flag.ExitOnError)
	validateCmd := flag.NewFlagSet("validate", flag.ExitOnError)
	showCmd := flag.NewFlagSet("show", flag.ExitOnError)

	initPath := initCmd.String("path", defaultPath, "Path to registry file")
	force := initCmd.Bool("force", false, "Overwrite an existing file")

	neighborPath := neighborCmd.String("path", defaultPath, "Path to registry file")
	county := neighborCmd.String("county", "", "County whose neighbor list is extended (e.g., kings)")
	neighbor := neighborCmd.String("neighbor", "", "Neighboring county (e.g., tulare)")
	both := neighborCmd.Bool("both", false, "Also add the reverse edge")

	multiplierPath := multiplierCmd.String("path", defaultPath, "Path to registry file")
	segment := multiplierCmd.String("segment", "", "Industry segment (e.g., hotel)")
	value := multiplierCmd.String("value", "", "Multiplier, e.g. 1.6")

	validatePath := validateCmd.String("path", defaultPath, "Path to registry file")
	showPath := showCmd.String("path", defaultPath, "Path to registry file")

	if len(os.Args) < 2 {
		help(os.Stdout)
		os.Exit(1)
	}

	var err error
	switch os.Args[1] {
	case "init":
		initCmd.Parse(os.Args[2:])
		err = initRegistry(*initPath, *force)

	case "add-neighbor":
		neighborCmd.Parse(os.Args[2:])
		if *county == "" || *neighbor == "" {
			fmt.Println("Error: county and neighbor are required for add-neighbor.")
			neighborCmd.Usage()
			os.Exit(1)
		}
		err = addNeighbor(*neighborPath, *county, *neighbor, *both)

	case "set-multiplier":
		multiplierCmd.Parse(os.Args[2:])
		if *segment == "" || *value == "" {
			fmt.Println("Error: segment and value are required for set-multiplier.")
			multiplierCmd.Usage()
			os.Exit(1)
		}
		err = setMultiplier(*multiplierPath, *segment, *value)

	case "validate":
		validateCmd.Parse(os.Args[2:])
		err = validateRegistry(*validatePath)

	case "show":
		showCmd.Parse(os.Args[2:])
		err = show(*showPath)

	case "help":
		fallthrough
	default:
		help(os.Stdout)
		return
	}

	if err != nil {
		fmt.Printf("Error: %v\n", err)
		os.Exit(1)
	}
}

func initRegistry(path string, force bool) error {
	if _, err := os.Stat(path); err == nil && !force {
		return fmt.Errorf("%s already exists (use -force to overwrite)", path)
	}
	if err := save(registry.Default(), path); err != nil {
		return err
	}
	fmt.Printf("Wrote default reference data to %s\n", path)
	return nil
}

// loadOrDefault starts from the built-in tables when the file does not exist yet.
func loadOrDefault(path string) (*registry.ReferenceRegistry, error) {
	reg, err := registry.LoadRegistry(path)
	if err != nil {
		if os.IsNotExist(err) {
			return registry.Default(), nil
		}
		return nil, fmt.Errorf("failed to load registry: %w", err)
	}
	return reg, nil
}

func addNeighbor(path, county, neighbor string, both bool) error {
	reg, err := loadOrDefault(path)
	if err != nil {
		return err
	}

	added := reg.AddNeighbor(county, neighbor)
	if both && reg.AddNeighbor(neighbor, county) {
		added = true
	}
	if !added {
		fmt.Printf("%s -> %s already present\n", county, neighbor)
		return nil
	}
	if err := reg.Validate(); err != nil {
		return err
	}
	if err := save(reg, path); err != nil {
		return err
	}
	fmt.Printf("Added neighbor %s -> %s\n", county, neighbor)
	return nil
}

func setMultiplier(path, segment, raw string) error {
	m, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return fmt.Errorf("invalid multiplier value: %w", err)
	}

	reg, err := loadOrDefault(path)
	if err != nil {
		return err
	}
	if err := reg.SetMultiplier(segment, m); err != nil {
		return err
	}
	if err := save(reg, path); err != nil {
		return err
	}
	fmt.Printf("Set %s multiplier to %s\n", segment, strconv.FormatFloat(m, 'f', -1, 64))
	return nil
}

// validateRegistry checks the file against the JSON schema, then the semantic rules.
func validateRegistry(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read registry: %w", err)
	}

	res, err := validation.ValidateJSON(validation.SchemaRegistry, data)
	if err != nil {
		return err
	}
	if !res.Valid {
		return fmt.Errorf("schema validation failed: %s", res.Error())
	}

	reg, err := registry.LoadRegistry(path)
	if err != nil {
		return err
	}
	if err := reg.Validate(); err != nil {
		return err
	}

	fmt.Printf("Registry validation passed. %d counties with neighbors, %d segment multipliers.\n",
		len(reg.Neighbors), len(reg.Multipliers))
	return nil
}

func show(path string) error {
	reg, err := loadOrDefault(path)
	if err != nil {
		return err
	}

	fmt.Printf("version: %s\n\nneighbors:\n", reg.Version)
	counties := make([]string, 0, len(reg.Neighbors))
	for c := range reg.Neighbors {
		counties = append(counties, c)
	}
	sort.Strings(counties)
	for _, c := range counties {
		fmt.Printf("  %-12s %v\n", c, reg.Neighbors[c])
	}

	fmt.Println("\nmultipliers:")
	for _, seg := range registry.Segments {
		m, _ := reg.Multiplier(seg)
		fmt.Printf("  %-26s %sx\n", seg, strconv.FormatFloat(m, 'f', -1, 64))
	}
	return nil
}

func save(reg *registry.ReferenceRegistry, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}
	if err := reg.Save(path); err != nil {
		return fmt.Errorf("failed to write registry file: %w", err)
	}
	return nil
}

const usage = `
Usage: registry-updater <command> [flags]

Commands:
  init            Write the built-in reference data to a file
  add-neighbor    Add a directed county adjacency edge
  set-multiplier  Override an industry segment multiplier
  validate        Validate a reference data file
  show            Print the reference tables
  help            Show this help message

Examples:
  registry-updater init -path configs/reference-data.json
  registry-updater add-neighbor -county kings -neighbor tulare -both
  registry-updater set-multiplier -segment hotel -value 1.75
  registry-updater validate -path configs/reference-data.json

Use 'registry-updater <command> -h' for more information about a command.
`

func help(w io.Writer) {
	fmt.Fprint(w, usage)
}
