package main

import (
	"fmt"
	"io"
)

// printUsage prints the main usage message.
func printUsage(w io.Writer) {
	fmt.Fprintln(w, "Usage: kibela2esa <command> [flags]")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Commands:")
	fmt.Fprintln(w, "  migrate    Upload attachments, create posts and rewrite links")
	fmt.Fprintln(w, "  check      Parse the export and report problems, no network")
	fmt.Fprintln(w, "  version    Show version information")
	fmt.Fprintln(w, "  help       Show help for a command")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Run 'kibela2esa help <command>' for details on a specific command.")
}

// printMigrateUsage prints usage for the migrate command.
func printMigrateUsage(w io.Writer) {
	fmt.Fprintln(w, "Usage: kibela2esa migrate [flags]")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Migrate a Kibela export to esa.")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Source:")
	fmt.Fprintln(w, "  -s, --source-dir <path>   Directory holding kibela-<team>-<n> exports")
	fmt.Fprintln(w, "      --source-team <s>     Source team name")
	fmt.Fprintln(w, "      --on-parse-error <s>  skip (default) or abort")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Run:")
	fmt.Fprintln(w, "  -n, --dry-run             Log every request without sending it")
	fmt.Fprintln(w, "  -o, --report <path>       Report file (title, source URL, destination URL)")
	fmt.Fprintln(w, "      --log-dir <path>      Directory for log_<timestamp>.log")
	fmt.Fprintln(w, "      --pacing <d>          Minimum interval between writes (default 500ms)")
	fmt.Fprintln(w, "      --attempts <n>        Tries per destination call (default 4)")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Resume:")
	fmt.Fprintln(w, "      --checkpoint <s>      none, memory, sqlite, redis")
	fmt.Fprintln(w, "      --checkpoint-dsn <s>  SQLite file or redis:// URL")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Common:")
	fmt.Fprintln(w, "  -c, --config <name>       Config file name or path")
	fmt.Fprintln(w, "      --env-file <path>     Secrets file (default .env)")
	fmt.Fprintln(w, "  -q, --quiet               Only show errors")
	fmt.Fprintln(w, "  -v, --verbose             Show every request payload")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Environment:")
	fmt.Fprintln(w, "  ESA_ACCESS_TOKEN          esa API token (required unless --dry-run)")
	fmt.Fprintln(w, "  KIBELA_SESSION_ID         Kibela browser session, resolves wiki links")
	fmt.Fprintln(w, "  KIBELA2ESA_*              Config overrides, see 'kibela2esa help env'")
}

// printCheckUsage prints usage for the check command.
func printCheckUsage(w io.Writer) {
	fmt.Fprintln(w, "Usage: kibela2esa check [flags]")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Parse every document and attachment of the export and report")
	fmt.Fprintln(w, "parse failures, image references with no matching attachment and")
	fmt.Fprintln(w, "authors without a user mapping. No network calls are made.")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Flags:")
	fmt.Fprintln(w, "  -s, --source-dir <path>   Directory holding kibela-<team>-<n> exports")
	fmt.Fprintln(w, "      --source-team <s>     Source team name")
	fmt.Fprintln(w, "      --json                Print the result as JSON")
	fmt.Fprintln(w, "  -c, --config <name>       Config file name or path")
	fmt.Fprintln(w, "  -q, --quiet               Only show errors")
}

// runHelp prints help for the named command.
func runHelp(args []string, env *Environment) int {
	if len(args) == 0 {
		printUsage(env.Stdout)
		return ExitSuccess
	}

	switch args[0] {
	case "migrate":
		printMigrateUsage(env.Stdout)
	case "check":
		printCheckUsage(env.Stdout)
	case "env":
		printEnvUsage(env.Stdout)
	case "version":
		fmt.Fprintln(env.Stdout, "Usage: kibela2esa version")
		fmt.Fprintln(env.Stdout)
		fmt.Fprintln(env.Stdout, "Show version information.")
	default:
		fmt.Fprintf(env.Stderr, "unknown command %q\n\n", args[0])
		printUsage(env.Stderr)
		return ExitUsage
	}
	return ExitSuccess
}
