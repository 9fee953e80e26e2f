// Package synthesis provides the built-in constructive roster: a generator
// that produces artifact fragments from synthesis requests, a healer that
// rewrites faulty seed source into compliant form, and an enforcer that
// validates assembled artifacts against the constructive axiom set.
package synthesis

import (
	"context"
	"fmt"
	"strings"

	"github.com/corvidlabs/rook/pkg/agent"
	"github.com/corvidlabs/rook/pkg/blackboard"
)

// GeneratorName is the producer name recorded on generator facts.
const GeneratorName = "code_generator"

// Generator expands synthesis request seeds into ordered artifact fragments.
// Each fragment depends on its seed, which is also how the generator tracks
// which requests it has already served.
type Generator struct{}

// NewGenerator returns the code generation agent.
func NewGenerator() *Generator { return &Generator{} }

func (g *Generator) Descriptor() agent.Descriptor {
	return agent.Descriptor{
		Name:     GeneratorName,
		Reads:    []blackboard.Kind{blackboard.KindSeed, blackboard.KindArtifactFragment},
		Produces: []blackboard.Kind{blackboard.KindArtifactFragment},
	}
}

func (g *Generator) Triggered(snap *blackboard.Snapshot) bool {
	return len(pendingRequests(snap)) > 0
}

func (g *Generator) Run(ctx context.Context, snap *blackboard.Snapshot) ([]agent.Proposal, error) {
	var proposals []agent.Proposal

	for _, seed := range pendingRequests(snap) {
		payload, ok := seed.Payload.(*blackboard.SeedPayload)
		if !ok {
			continue
		}
		request := payload.Request

		fragments, err := fragmentsFor(request)
		if err != nil {
			return nil, err
		}
		for _, fragment := range fragments {
			proposals = append(proposals, agent.Proposal{
				Kind:      blackboard.KindArtifactFragment,
				Payload:   fragment,
				DependsOn: []int64{seed.ID},
			})
		}
	}

	return proposals, nil
}

// pendingRequests returns request seeds the generator has not yet expanded,
// in fact id order.
func pendingRequests(snap *blackboard.Snapshot) []blackboard.Fact {
	covered := make(map[int64]bool)
	for _, fact := range snap.Query(blackboard.KindArtifactFragment) {
		if fact.Producer != GeneratorName {
			continue
		}
		for _, id := range fact.DependsOn {
			covered[id] = true
		}
	}

	var pending []blackboard.Fact
	for _, seed := range snap.Query(blackboard.KindSeed) {
		payload, ok := seed.Payload.(*blackboard.SeedPayload)
		if !ok || payload.Request == nil || covered[seed.ID] {
			continue
		}
		pending = append(pending, seed)
	}
	return pending
}

func fragmentsFor(request *blackboard.SynthesisRequest) ([]*blackboard.ArtifactFragmentPayload, error) {
	switch request.Target {
	case "view":
		return viewFragments(request.Name), nil
	case "service":
		return serviceFragments(request.Name, request.Methods), nil
	case "project":
		return projectFragments(request), nil
	default:
		return nil, fmt.Errorf("unknown synthesis target: %q", request.Target)
	}
}

// viewFragments produces a SwiftUI view in three ordered pieces: the view
// struct, its observable view model, and a preview.
func viewFragments(name string) []*blackboard.ArtifactFragmentPayload {
	file := name + ".swift"

	view := fmt.Sprintf(`import SwiftUI

// MARK: - %[1]s View

struct %[1]s: View {
    @StateObject private var viewModel = %[1]sViewModel()

    var body: some View {
        NavigationStack {
            content
                .navigationTitle("%[1]s")
        }
        .task { await viewModel.loadData() }
    }

    @ViewBuilder
    private var content: some View {
        if viewModel.isLoading {
            ProgressView()
        } else {
            List(viewModel.items, id: \.self) { item in
                Text(item)
            }
        }
    }
}`, name)

	viewModel := fmt.Sprintf(`// MARK: - View Model
@Observable
class %[1]sViewModel {
    var items: [String] = []
    var isLoading = false
    var error: Error?

    @MainActor
    func loadData() async {
        isLoading = true
        defer { isLoading = false }

        do {
            try await Task.sleep(for: .seconds(1))
            items = ["Item 1", "Item 2", "Item 3"]
        } catch {
            self.error = error
        }
    }
}`, name)

	preview := fmt.Sprintf(`// MARK: - Preview
#Preview {
    %s()
}`, name)

	return []*blackboard.ArtifactFragmentPayload{
		{Target: name, File: file, Order: 0, Content: view},
		{Target: name, File: file, Order: 1, Content: viewModel},
		{Target: name, File: file, Order: 2, Content: preview},
	}
}

// serviceFragments produces a protocol, a URLSession-backed implementation,
// and a debug mock, ready for init injection.
func serviceFragments(name string, methods []blackboard.ServiceMethod) []*blackboard.ArtifactFragmentPayload {
	if len(methods) == 0 {
		methods = []blackboard.ServiceMethod{{Name: "fetchData", Returns: "[String]", Throws: true}}
	}
	file := name + ".swift"

	var signatures, implementations, mocks []string
	for _, method := range methods {
		throws := ""
		if method.Throws {
			throws = "throws "
		}
		sig := fmt.Sprintf("    func %s() async %s-> %s", method.Name, throws, method.Returns)
		signatures = append(signatures, sig)

		body := fmt.Sprintf("return %s()", method.Returns)
		if method.Throws {
			body = "throw ServiceError.notImplemented"
		}
		implementations = append(implementations, fmt.Sprintf(`    func %s() async %s-> %s {
        %s
    }`, method.Name, throws, method.Returns, body))

		mocks = append(mocks, fmt.Sprintf(`    func %s() async %s-> %s {
        return %s()
    }`, method.Name, throws, method.Returns, method.Returns))
	}

	protocol := fmt.Sprintf(`import Foundation

// MARK: - %[1]s Protocol

protocol %[1]sProtocol {
%s
}`, name, strings.Join(signatures, "\n"))

	implementation := fmt.Sprintf(`// MARK: - %[1]s Implementation
final class %[1]s: %[1]sProtocol {

    enum ServiceError: Error {
        case notImplemented
        case networkError(Error)
        case invalidResponse
    }

    private let session: URLSession

    init(session: URLSession = .shared) {
        self.session = session
    }

%s
}`, name, strings.Join(implementations, "\n\n"))

	mock := fmt.Sprintf(`// MARK: - Mock for Testing
#if DEBUG
final class Mock%[1]s: %[1]sProtocol {
%s
}
#endif`, name, strings.Join(mocks, "\n\n"))

	return []*blackboard.ArtifactFragmentPayload{
		{Target: name, File: file, Order: 0, Content: protocol},
		{Target: name, File: file, Order: 1, Content: implementation},
		{Target: name, File: file, Order: 2, Content: mock},
	}
}

// projectFragments produces a complete project: an XcodeGen configuration
// with hot reload flags, then one file per requested view and service.
func projectFragments(request *blackboard.SynthesisRequest) []*blackboard.ArtifactFragmentPayload {
	fragments := []*blackboard.ArtifactFragmentPayload{{
		Target:  request.Name,
		File:    "project.yml",
		Order:   0,
		Content: xcodegenConfig(request.Name),
	}}

	order := 1
	for _, view := range request.Views {
		for _, fragment := range viewFragments(view) {
			fragment.Target = request.Name
			fragment.Order = order
			order++
			fragments = append(fragments, fragment)
		}
	}
	for _, service := range request.Services {
		methods := []blackboard.ServiceMethod{{Name: "fetch", Returns: "[String]", Throws: true}}
		for _, fragment := range serviceFragments(service, methods) {
			fragment.Target = request.Name
			fragment.Order = order
			order++
			fragments = append(fragments, fragment)
		}
	}

	return fragments
}

func xcodegenConfig(name string) string {
	return fmt.Sprintf(`# project.yml
# XcodeGen configuration with hot reload support

name: %[1]s
options:
  bundleIdPrefix: com.example
  deploymentTarget:
    iOS: "17.0"

settings:
  base:
    SWIFT_VERSION: "5.9"
    ENABLE_USER_SCRIPT_SANDBOXING: YES

targets:
  %[1]s:
    type: application
    platform: iOS
    deploymentTarget: "17.0"
    sources:
      - path: %[1]s
    settings:
      configs:
        Debug:
          OTHER_LDFLAGS: ["-Xlinker", "-interposable"]
          SWIFT_ACTIVE_COMPILATION_CONDITIONS: DEBUG
        Release:
          SWIFT_OPTIMIZATION_LEVEL: -O
    dependencies: []

schemes:
  %[1]s:
    build:
      targets:
        %[1]s: all
    run:
      config: Debug
    test:
      config: Debug`, name)
}
