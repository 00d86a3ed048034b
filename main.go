package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/jedrobots/gridvm/api"
	"github.com/jedrobots/gridvm/compiler"
	"github.com/jedrobots/gridvm/config"
	"github.com/jedrobots/gridvm/debugger"
	"github.com/jedrobots/gridvm/grid"
	"github.com/jedrobots/gridvm/tools"
	"github.com/jedrobots/gridvm/vm"
)

// Version information - can be overridden at build time with:
// go build -ldflags "-X main.Version=v1.2.3"
var (
	Version = "dev"     // Version number (set by git tag at build time)
	Commit  = "unknown" // Git commit hash
	Date    = "unknown" // Build date
)

func main() {
	var (
		showVersion = flag.Bool("version", false, "Show version information")
		showHelp    = flag.Bool("help", false, "Show help information")
		debugMode   = flag.Bool("debug", false, "Start in debugger mode (CLI)")
		tuiMode     = flag.Bool("tui", false, "Use TUI (Text User Interface) debugger")
		guiMode     = flag.Bool("gui", false, "Use GUI (desktop window) debugger")
		apiServer   = flag.Bool("api-server", false, "Start HTTP API server mode")
		apiPort     = flag.Int("port", 8080, "API server port (used with -api-server)")
		maxTicks    = flag.Uint64("max-ticks", 0, "Maximum instructions before halt (0 = config default)")
		configPath  = flag.String("config", "", "Config file path (default: platform config dir)")
		verboseMode = flag.Bool("verbose", false, "Verbose output")

		compileOnly = flag.Bool("compile", false, "Compile only; write the image and exit")
		outputFile  = flag.String("o", "", "Compiled image output file (default: <grid>.jed)")

		lintMode   = flag.Bool("lint", false, "Lint the grid and exit")
		xrefMode   = flag.Bool("xref", false, "Print the label cross-reference and exit")
		formatMode = flag.Bool("format", false, "Reprint the grid normalized and exit")

		enableTrace    = flag.Bool("trace", false, "Enable execution trace")
		traceFile      = flag.String("trace-file", "", "Trace output file (default: trace.log)")
		enableCoverage = flag.Bool("coverage", false, "Enable code coverage tracking")
		coverageFile   = flag.String("coverage-file", "", "Coverage output file (default: coverage.txt)")
	)

	flag.Parse()

	if *showVersion {
		fmt.Printf("gridvm %s\n", Version)
		if Commit != "unknown" {
			fmt.Printf("Commit: %s\n", Commit)
		}
		if Date != "unknown" {
			fmt.Printf("Built: %s\n", Date)
		}
		os.Exit(0)
	}

	if *showHelp {
		printHelp()
		os.Exit(0)
	}

	if *apiServer {
		runAPIServer(*apiPort)
		return
	}

	if flag.NArg() == 0 {
		printHelp()
		os.Exit(0)
	}

	gridFile := flag.Arg(0)
	source, err := os.ReadFile(gridFile) // #nosec G304 -- user-specified grid source path
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error reading %s: %v\n", gridFile, err)
		os.Exit(1)
	}

	cfg, err := loadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
		os.Exit(1)
	}

	g, err := grid.Load(string(source), gridFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Grid error:\n%v\n", err)
		os.Exit(1)
	}

	if *verboseMode {
		fmt.Printf("Loaded %dx%d grid from %s\n", g.Width, g.Height, gridFile)
	}

	if *formatMode {
		fmt.Print(tools.Format(g, tools.FormatOptions{Ruler: *verboseMode}))
		os.Exit(0)
	}

	if *lintMode || *xrefMode {
		runAnalysis(g, *lintMode, *xrefMode)
		return
	}

	img, err := compiler.Compile(g)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Compile error:\n%v\n", err)
		os.Exit(1)
	}

	if *verboseMode {
		fmt.Printf("Compiled %d-byte image, %d entry points\n", len(img), img[10])
	}

	if *compileOnly {
		out := *outputFile
		if out == "" {
			out = gridFile + ".jed"
		}
		if err := os.WriteFile(out, img, 0600); err != nil {
			fmt.Fprintf(os.Stderr, "Error writing %s: %v\n", out, err)
			os.Exit(1)
		}
		if *verboseMode {
			fmt.Printf("Image written: %s\n", out)
		}
		os.Exit(0)
	}

	machine, err := vm.Load(img)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Load error:\n%v\n", err)
		os.Exit(1)
	}

	machine.TickLimit = cfg.Execution.MaxInstructions
	if *maxTicks > 0 {
		machine.TickLimit = *maxTicks
	}

	// Setup tracing and coverage
	var traceOut, covOut *os.File

	if *enableTrace || cfg.Execution.EnableTrace {
		tracePath := *traceFile
		if tracePath == "" {
			tracePath = cfg.Trace.OutputFile
		}
		traceOut, err = os.Create(tracePath) // #nosec G304 -- user-specified trace output path
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error creating trace file: %v\n", err)
			os.Exit(1)
		}
		defer closeFile(traceOut, "trace")

		machine.Trace = vm.NewExecutionTrace(traceOut)
		machine.Trace.MaxEntries = cfg.Trace.MaxEntries

		if *verboseMode {
			fmt.Printf("Execution trace enabled: %s\n", tracePath)
		}
	}

	if *enableCoverage || cfg.Execution.EnableCoverage {
		covPath := *coverageFile
		if covPath == "" {
			covPath = "coverage.txt"
		}
		covOut, err = os.Create(covPath) // #nosec G304 -- user-specified coverage output path
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error creating coverage file: %v\n", err)
			os.Exit(1)
		}
		defer closeFile(covOut, "coverage")

		machine.Coverage = vm.NewCodeCoverage(covOut)

		if *verboseMode {
			fmt.Printf("Code coverage enabled: %s\n", covPath)
		}
	}

	if *debugMode || *tuiMode || *guiMode {
		dbg := debugger.NewDebugger(machine, img)
		dbg.LoadGrid(g)
		dbg.History.SetMaxSize(cfg.Debugger.HistorySize)

		switch {
		case *guiMode:
			if err := debugger.RunGUI(dbg); err != nil {
				fmt.Fprintf(os.Stderr, "GUI error: %v\n", err)
				os.Exit(1)
			}
		case *tuiMode:
			if err := debugger.RunTUI(dbg); err != nil {
				fmt.Fprintf(os.Stderr, "TUI error: %v\n", err)
				os.Exit(1)
			}
		default:
			fmt.Println("gridvm debugger - Type 'help' for commands")
			fmt.Printf("Program loaded: %s\n", gridFile)
			fmt.Println()

			if err := debugger.RunCLI(dbg); err != nil {
				fmt.Fprintf(os.Stderr, "Debugger error: %v\n", err)
				os.Exit(1)
			}
		}
		return
	}

	// Direct execution mode
	if *verboseMode {
		fmt.Println("\nStarting execution...")
		fmt.Println("----------------------------------------")
	}

	machine.Run()

	if machine.Live() {
		fmt.Fprintf(os.Stderr, "Halted after %d ticks with processes still live (tick limit reached)\n",
			machine.Ticks)
	}

	exitCode := 0
	for _, p := range machine.Procs {
		if p.Err != nil {
			fmt.Fprintf(os.Stderr, "[proc%d] fault at pc=%d: %v\n", p.ID, p.PC, p.Err)
			exitCode = 1
			continue
		}
		if len(p.Stack) > 0 {
			fmt.Printf("[proc%d] halted at %04x, stack top: %d\n", p.ID, p.PC, p.Stack[len(p.Stack)-1])
		} else if *verboseMode {
			fmt.Printf("[proc%d] halted at %04x\n", p.ID, p.PC)
		}
	}

	if *verboseMode {
		fmt.Println("----------------------------------------")
		fmt.Printf("Execution complete after %d ticks\n", machine.Ticks)
	}

	if machine.Trace != nil {
		if err := machine.Trace.Flush(); err != nil {
			fmt.Fprintf(os.Stderr, "Error flushing execution trace: %v\n", err)
		} else if *verboseMode {
			fmt.Printf("Execution trace written (%d entries)\n", len(machine.Trace.Entries()))
		}
	}

	if machine.Coverage != nil {
		if err := machine.Coverage.Flush(machine); err != nil {
			fmt.Fprintf(os.Stderr, "Error flushing coverage: %v\n", err)
		} else if *verboseMode {
			fmt.Printf("Coverage: %.1f%%\n", machine.Coverage.Percent(machine))
		}
	}

	os.Exit(exitCode)
}

// loadConfig loads the TOML run configuration, from an explicit path if
// given or the platform default otherwise.
func loadConfig(path string) (*config.Config, error) {
	if path != "" {
		return config.LoadFrom(path)
	}
	return config.Load()
}

// runAnalysis runs the lint and/or xref tools over a grid and exits.
func runAnalysis(g *grid.Grid, lint, xref bool) {
	labels, err := compiler.DiscoverLabels(g)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Compile error:\n%v\n", err)
		os.Exit(1)
	}
	blocks, err := compiler.WalkPaths(g, labels)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Compile error:\n%v\n", err)
		os.Exit(1)
	}

	exitCode := 0
	if lint {
		issues := tools.Lint(g, labels, blocks)
		for _, issue := range issues {
			fmt.Println(issue.String())
			if issue.Level == tools.LintError {
				exitCode = 1
			}
		}
		if len(issues) == 0 {
			fmt.Println("No issues found")
		}
	}
	if xref {
		fmt.Print(tools.CrossReference(g, labels, blocks).Format())
	}
	os.Exit(exitCode)
}

// runAPIServer starts the HTTP API and blocks until interrupted.
func runAPIServer(port int) {
	server := api.NewServer(port)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	var shutdownOnce sync.Once
	performShutdown := func() {
		shutdownOnce.Do(func() {
			fmt.Println("\nShutting down API server...")

			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()

			if err := server.Shutdown(ctx); err != nil {
				fmt.Fprintf(os.Stderr, "Error during shutdown: %v\n", err)
				os.Exit(1)
			}

			fmt.Println("API server stopped")
			os.Exit(0)
		})
	}

	go func() {
		if err := server.Start(); err != nil && err != http.ErrServerClosed {
			fmt.Fprintf(os.Stderr, "API server error: %v\n", err)
			os.Exit(1)
		}
	}()

	<-sigChan
	performShutdown()
}

func closeFile(f *os.File, label string) {
	if err := f.Close(); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: failed to close %s file: %v\n", label, err)
	}
}

func printHelp() {
	fmt.Printf(`gridvm %s - grid-robots bytecode compiler and virtual machine

Usage: gridvm [options] <grid-file>
       gridvm -api-server [-port N]

Options:
  -help              Show this help message
  -version           Show version information
  -api-server        Start HTTP API server mode (no grid file required)
  -port N            API server port (default: 8080, used with -api-server)
  -debug             Start in debugger mode (CLI)
  -tui               Start in TUI debugger mode
  -gui               Start in GUI debugger mode
  -max-ticks N       Maximum instructions before halt (default: from config)
  -config FILE       Config file path (default: platform config dir)
  -verbose           Enable verbose output

Compiler Options:
  -compile           Compile only; write the image and exit
  -o FILE            Compiled image output file (default: <grid>.jed)

Analysis Options:
  -lint              Lint the grid (unreachable blocks, non-terminating paths)
  -xref              Print the label cross-reference table
  -format            Reprint the grid with normalized row padding

Tracing Options:
  -trace             Enable execution trace
  -trace-file FILE   Trace output file (default: trace.log)
  -coverage          Enable code coverage tracking
  -coverage-file F   Coverage output file (default: coverage.txt)

Examples:
  # Run a program
  gridvm examples/counter.grid

  # Compile to a bytecode image without running
  gridvm -compile -o counter.jed examples/counter.grid

  # Run with the CLI debugger
  gridvm -debug examples/counter.grid

  # Run with the TUI debugger
  gridvm -tui examples/counter.grid

  # Run with execution trace and coverage
  gridvm -trace -coverage -verbose examples/counter.grid

  # Lint a grid for unreachable code paths
  gridvm -lint examples/counter.grid

  # Start the API server for remote clients
  gridvm -api-server -port 3000

Debugger Commands (when in -debug mode):
  run, r             Reload the image and start execution
  continue, c        Continue execution
  step, s            Advance every live process by one instruction
  break OFFSET       Set breakpoint at a code offset
  info processes     Show every process's state
  print EXPR         Evaluate and print an expression
  help               Show debugger help
`, Version)
}
