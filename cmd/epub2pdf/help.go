package main

import (
	"fmt"
	"io"
)

// printUsage prints the main usage message.
func printUsage(w io.Writer) {
	fmt.Fprintln(w, "Usage: epub2pdf <command> [flags] [args]")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Commands:")
	fmt.Fprintln(w, "  convert     Convert EPUB files to PDF")
	fmt.Fprintln(w, "  serve       Run the HTTP upload server")
	fmt.Fprintln(w, "  doctor      Check pandoc, Chrome and fonts")
	fmt.Fprintln(w, "  completion  Generate shell completion script")
	fmt.Fprintln(w, "  version     Show version information")
	fmt.Fprintln(w, "  help        Show help for a command")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Run 'epub2pdf help <command>' for details on a specific command.")
}

// printRenderUsage prints the flags shared by convert and serve.
func printRenderUsage(w io.Writer) {
	fmt.Fprintln(w, "Rendering:")
	fmt.Fprintln(w, "  -b, --backend <s>         Backend: text, unicode, html, html-noimages")
	fmt.Fprintln(w, "      --converter <s>       EPUB to HTML converter: pandoc, builtin, auto")
	fmt.Fprintln(w, "      --engine <s>          Browser engine: rod, chromedp")
	fmt.Fprintln(w, "      --style <s>           Stylesheet: name, .css path or inline CSS")
	fmt.Fprintln(w, "      --asset-path <dir>    Directory with custom styles and templates")
	fmt.Fprintln(w, "      --font <path>         TrueType font for the unicode backend (repeatable)")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Tools:")
	fmt.Fprintln(w, "      --pandoc <path>       pandoc executable")
	fmt.Fprintln(w, "      --browser-bin <path>  Chrome/Chromium executable")
	fmt.Fprintln(w, "      --no-sandbox          Disable the Chrome sandbox (containers)")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Page:")
	fmt.Fprintln(w, "  -p, --page-size <s>       Page size: letter, a4, legal")
	fmt.Fprintln(w, "      --orientation <s>     Orientation: portrait, landscape")
	fmt.Fprintln(w, "      --margin <f>          Margin in inches (0.25-3.0)")
	fmt.Fprintln(w, "      --font-size <f>       Text size in points for text backends (6-36)")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Limits:")
	fmt.Fprintln(w, "  -t, --timeout <d>         Job timeout (e.g. 2m)")
	fmt.Fprintln(w, "      --conversion-timeout <d>")
	fmt.Fprintln(w, "                            EPUB to HTML timeout")
	fmt.Fprintln(w, "      --max-input-mb <n>    Largest accepted EPUB in MB")
}

// printCommonUsage prints the flags every command accepts.
func printCommonUsage(w io.Writer) {
	fmt.Fprintln(w, "Output Control:")
	fmt.Fprintln(w, "  -c, --config <name>       Config file name or path")
	fmt.Fprintln(w, "  -q, --quiet               Only show errors")
	fmt.Fprintln(w, "  -v, --verbose             Show debug logs and timing")
	fmt.Fprintln(w, "      --log-format <s>      Log format: text, json")
}

// printConvertUsage prints usage for the convert command.
func printConvertUsage(w io.Writer) {
	fmt.Fprintln(w, "Usage: epub2pdf convert <input>... [flags]")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Convert EPUB files to PDF.")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Arguments:")
	fmt.Fprintln(w, "  input    EPUB file or directory (searched recursively)")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Input/Output:")
	fmt.Fprintln(w, "  -o, --output <path>       Output file or directory")
	fmt.Fprintln(w, "  -w, --workers <n>         Parallel workers (0 = auto)")
	fmt.Fprintln(w)
	printRenderUsage(w)
	fmt.Fprintln(w)
	printCommonUsage(w)
}

// printServeUsage prints usage for the serve command.
func printServeUsage(w io.Writer) {
	fmt.Fprintln(w, "Usage: epub2pdf serve [flags]")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Run an HTTP server that converts uploaded EPUB files.")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Endpoints:")
	fmt.Fprintln(w, "  GET  /           Upload form")
	fmt.Fprintln(w, "  POST /convert    Multipart field \"file\", optional \"backend\"")
	fmt.Fprintln(w, "  GET  /healthz    Liveness probe")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Server:")
	fmt.Fprintln(w, "      --addr <addr>         Listen address (default :8080)")
	fmt.Fprintln(w, "      --max-concurrent <n>  Jobs run at once (0 = auto)")
	fmt.Fprintln(w, "      --max-upload-mb <n>   Largest accepted upload in MB")
	fmt.Fprintln(w, "      --rate <f>            Uploads per second per client (0 = unlimited)")
	fmt.Fprintln(w, "      --burst <n>           Upload burst per client")
	fmt.Fprintln(w, "      --allowed-origin <s>  CORS origin (repeatable, default any)")
	fmt.Fprintln(w)
	printRenderUsage(w)
	fmt.Fprintln(w)
	printCommonUsage(w)
}

// printDoctorUsage prints usage for the doctor command.
func printDoctorUsage(w io.Writer) {
	fmt.Fprintln(w, "Usage: epub2pdf doctor [flags]")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Check that pandoc, Chrome and fonts are available for the")
	fmt.Fprintln(w, "configured backend. Exits 1 when a required tool is missing.")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Flags:")
	fmt.Fprintln(w, "      --json                Print the report as JSON")
	fmt.Fprintln(w)
	printCommonUsage(w)
}

// runHelp prints help for a specific command.
func runHelp(args []string, env *Environment) {
	if len(args) == 0 {
		printUsage(env.Stdout)
		return
	}

	switch args[0] {
	case "convert":
		printConvertUsage(env.Stdout)
	case "serve":
		printServeUsage(env.Stdout)
	case "doctor":
		printDoctorUsage(env.Stdout)
	case "completion":
		printCompletionUsage(env.Stdout)
	case "version":
		fmt.Fprintln(env.Stdout, "Usage: epub2pdf version")
		fmt.Fprintln(env.Stdout)
		fmt.Fprintln(env.Stdout, "Show version information.")
	case "help":
		fmt.Fprintln(env.Stdout, "Usage: epub2pdf help [command]")
		fmt.Fprintln(env.Stdout)
		fmt.Fprintln(env.Stdout, "Show help for a command.")
	default:
		fmt.Fprintf(env.Stderr, "Unknown command: %s\n", args[0])
		printUsage(env.Stderr)
	}
}
