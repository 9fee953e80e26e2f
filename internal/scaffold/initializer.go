// Package scaffold creates the starter files for a new Rook project: a
// default rook.yml and a sample artifact to analyze.
package scaffold

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

const rookYmlTemplate = `# Rook project configuration
version: "1.0"

run:
  # Verdict aggregation mode: forensic or synthesis
  mode: forensic

  # Scheduling rounds before a run is declared stalled (0 = default of 50)
  max_rounds: 0

  # Wall-clock budgets in Go duration syntax; empty disables the budget
  run_timeout: ""
  agent_timeout: ""

# Where closed runs are exported for later inspection with 'rook log'
archive:
  addr: localhost:6379

# Built-in agents can be disabled per project
agents:
  signature_scanner:
    enabled: true
  axiom_inverter:
    enabled: true
  risk_assessor:
    enabled: true
`

const sampleArtifactTemplate = `struct SampleView: View {
    @StateObject var viewModel = SampleViewModel()

    init() {
        viewModel.fetchData()
    }

    var body: some View {
        Text(viewModel.data)
    }
}

class SampleViewModel: ObservableObject {
    @Published var data = ""

    func fetchData() {
        let parsed = response as! [String: Any]
        data = try! decode(parsed)
    }
}
`

// FileInfo represents a file to be created during initialization
type FileInfo struct {
	Path        string
	Content     []byte
	Permissions os.FileMode
}

// Initialize creates the Rook project structure.
// If force is true, it will remove existing rook.yml and samples/ directory.
func Initialize(force bool) error {
	if force {
		if err := handleForce(); err != nil {
			return err
		}
	}

	if err := os.MkdirAll("samples", 0755); err != nil {
		return fmt.Errorf("failed to create directory samples: %w", err)
	}

	files := []FileInfo{
		{Path: "rook.yml", Content: []byte(rookYmlTemplate), Permissions: 0644},
		{Path: filepath.Join("samples", "sample_view.swift"), Content: []byte(sampleArtifactTemplate), Permissions: 0644},
	}
	for _, file := range files {
		if err := os.WriteFile(file.Path, file.Content, file.Permissions); err != nil {
			return fmt.Errorf("failed to write %s: %w", file.Path, err)
		}
	}

	return validateCreatedFiles()
}

// handleForce removes existing files if --force was specified
func handleForce() error {
	if _, err := os.Stat("rook.yml"); err == nil {
		fmt.Println("⚠️  Removing existing rook.yml...")
		if err := os.Remove("rook.yml"); err != nil {
			return fmt.Errorf("failed to remove rook.yml: %w", err)
		}
	}

	if info, err := os.Stat("samples"); err == nil && info.IsDir() {
		fmt.Println("⚠️  Removing existing samples/ directory...")
		if err := os.RemoveAll("samples"); err != nil {
			return fmt.Errorf("failed to remove samples/ directory: %w", err)
		}
	}

	return nil
}

// validateCreatedFiles validates that created files are correct
func validateCreatedFiles() error {
	content, err := os.ReadFile("rook.yml")
	if err != nil {
		return fmt.Errorf("failed to read created rook.yml: %w", err)
	}

	var yamlData interface{}
	if err := yaml.Unmarshal(content, &yamlData); err != nil {
		return fmt.Errorf("created rook.yml is not valid YAML: %w", err)
	}

	return nil
}

// PrintSuccess prints the success message with created files
func PrintSuccess() {
	fmt.Println("\n✅ Successfully initialized Rook project!")
	fmt.Println("\nCreated:")
	fmt.Println("  ✓ rook.yml")
	fmt.Println("  ✓ samples/sample_view.swift")
	fmt.Println("\nNext steps:")
	fmt.Println("  1. Customize rook.yml for your project")
	fmt.Println("  2. Run 'rook analyze samples/sample_view.swift' to inspect the sample")
	fmt.Println("  3. Run 'rook analyze --demo' to see the full detector suite in action")
}
