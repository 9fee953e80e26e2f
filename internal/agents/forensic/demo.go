package forensic

import (
	"github.com/corvidlabs/rook/pkg/agent"
	"github.com/corvidlabs/rook/pkg/blackboard"
)

// Roster returns the built-in forensic roster. Roster order matters for
// replay: scanner, inverter, assessor.
func Roster() (*agent.Roster, error) {
	return agent.NewRoster(NewScanner(), NewInverter(), NewAssessor())
}

// DemoSeeds returns the canned artifact corpus used by demo runs: five
// generated-code fragments reproducing documented failure modes.
func DemoSeeds() []agent.Proposal {
	artifacts := []blackboard.SeedPayload{
		{
			Label:  "CB_001",
			Config: "-w",
			Source: `
struct ContentView: View {
    @StateObject var viewModel = ViewModel()

    init() {
        viewModel.fetchData()
        print("View initialized")
    }

    var body: some View {
        Text(viewModel.data)
    }
}

class ViewModel: ObservableObject {
    @Published var data = ""

    func fetchData() {
        URLSession.shared.dataTask(with: url) { ... }
    }
}
`,
		},
		{
			Label:  "CB_002",
			Config: "-Xlinker -interposable",
			Source: `
func loadPreview() {
    let lib = dlopen("UIPreview.dylib", RTLD_NOW)

    let sym = dlsym(lib, "createView")

    let createView = unsafeBitCast(sym, to: (() -> AnyView).self)
    return createView()
}
`,
		},
		{
			Label:  "CB_003",
			Config: "-interposable",
			Source: `
func configureServer() {
    let cmd = "Aspnet_regiis.exe -ga user"

    let gopath = ProcessInfo.processInfo.environment["GOPATH"]

    system(cmd)
}
`,
		},
		{
			Label:  "CB_004",
			Config: "",
			Source: `
struct HotReloadView: View {
    @ObservedObject var injector = Inject.observer

    var body: some View {
        Text("Hello, Hot Reload!")
            .enableInjection()
    }
}
`,
		},
		{
			Label:  "CB_005",
			Config: "-Xlinker -interposable",
			Source: `
class DataManager {
    var data: [String] = []

    func loadData() {
        URLSession.shared.dataTask(with: url) { data, _, _ in
            self.data = data

            DispatchQueue.main.async {
                self.updateUI()
            }
        }.resume()
    }
}
`,
		},
	}

	seeds := make([]agent.Proposal, len(artifacts))
	for i := range artifacts {
		seeds[i] = agent.Proposal{
			Kind:    blackboard.KindSeed,
			Payload: &artifacts[i],
		}
	}
	return seeds
}
