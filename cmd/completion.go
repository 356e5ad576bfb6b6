// Package cmd provides CLI utilities for gitledger.
package cmd

import (
	"fmt"
	"strings"
)

// Commands available in gitledger.
var commands = []string{
	"init",
	"lock",
	"update",
	"renew",
	"release",
	"status",
	"gc",
	"completion",
	"help",
}

// GenerateBashCompletion generates a bash completion script.
func GenerateBashCompletion() string {
	return fmt.Sprintf(`# bash completion for gitledger
_gitledger_completions() {
    local cur prev opts
    COMPREPLY=()
    cur="${COMP_WORDS[COMP_CWORD]}"
    prev="${COMP_WORDS[COMP_CWORD-1]}"

    opts="%s"

    case "${prev}" in
        lock)
            opts="--config --quiet -q --json"
            ;;
        update)
            opts="--config --payload --quiet -q --json"
            ;;
        renew|release)
            opts="--config --quiet -q --json"
            ;;
        status)
            opts="--config --quiet -q --json"
            ;;
        gc)
            opts="--config"
            ;;
        completion)
            opts="bash zsh fish powershell"
            ;;
    esac

    COMPREPLY=( $(compgen -W "${opts}" -- ${cur}) )
    return 0
}

complete -F _gitledger_completions gitledger
`, strings.Join(commands, " "))
}

// GenerateZshCompletion generates a zsh completion script.
func GenerateZshCompletion() string {
	cmdList := make([]string, len(commands))
	for i, cmd := range commands {
		cmdList[i] = fmt.Sprintf("    '%s:%s'", cmd, getCommandDescription(cmd))
	}

	return fmt.Sprintf(`#compdef gitledger

_gitledger() {
    local -a commands
    commands=(
%s
    )

    _arguments -C \
        '1: :->command' \
        '*::arg:->args'

    case $state in
        command)
            _describe 'command' commands
            ;;
        args)
            case $words[1] in
                lock)
                    _arguments \
                        '--config[Path to ledger config file]:path:_files' \
                        '--quiet[Minimal output]' \
                        '-q[Minimal output]' \
                        '--json[JSON output]'
                    ;;
                update)
                    _arguments \
                        '--config[Path to ledger config file]:path:_files' \
                        '--payload[Payload file to publish]:path:_files' \
                        '--quiet[Minimal output]' \
                        '-q[Minimal output]' \
                        '--json[JSON output]'
                    ;;
                renew|release|status)
                    _arguments \
                        '--config[Path to ledger config file]:path:_files' \
                        '--quiet[Minimal output]' \
                        '-q[Minimal output]' \
                        '--json[JSON output]'
                    ;;
                gc)
                    _arguments '--config[Path to ledger config file]:path:_files'
                    ;;
                completion)
                    _arguments '1:shell:(bash zsh fish powershell)'
                    ;;
            esac
            ;;
    esac
}

_gitledger "$@"
`, strings.Join(cmdList, "\n"))
}

// GenerateFishCompletion generates a fish completion script.
func GenerateFishCompletion() string {
	var completions []string

	for _, cmd := range commands {
		completions = append(completions, fmt.Sprintf(
			"complete -c gitledger -f -n '__fish_use_subcommand' -a '%s' -d '%s'", cmd, getCommandDescription(cmd)))
	}

	completions = append(completions, "# shared flags")
	for _, sub := range []string{"lock", "update", "renew", "release", "status"} {
		completions = append(completions,
			fmt.Sprintf("complete -c gitledger -n '__fish_seen_subcommand_from %s' -l config -d 'Path to ledger config file' -r", sub),
			fmt.Sprintf("complete -c gitledger -n '__fish_seen_subcommand_from %s' -l quiet -s q -d 'Minimal output'", sub),
			fmt.Sprintf("complete -c gitledger -n '__fish_seen_subcommand_from %s' -l json -d 'JSON output'", sub),
		)
	}
	completions = append(completions, "complete -c gitledger -n '__fish_seen_subcommand_from update' -l payload -d 'Payload file to publish' -r")
	completions = append(completions, "complete -c gitledger -n '__fish_seen_subcommand_from gc' -l config -d 'Path to ledger config file' -r")
	completions = append(completions, "complete -c gitledger -n '__fish_seen_subcommand_from completion' -f -a 'bash zsh fish powershell'")

	return strings.Join(completions, "\n")
}

// GeneratePowerShellCompletion generates a PowerShell completion script.
func GeneratePowerShellCompletion() string {
	cmdArray := make([]string, len(commands))
	for i, cmd := range commands {
		cmdArray[i] = fmt.Sprintf("'%s'", cmd)
	}

	return fmt.Sprintf(`# PowerShell completion for gitledger
Register-ArgumentCompleter -Native -CommandName gitledger -ScriptBlock {
    param($wordToComplete, $commandAst, $cursorPosition)

    $commands = @(%s)

    $line = $commandAst.ToString()
    $tokens = $line.Split(' ')

    if ($tokens.Count -eq 2) {
        $commands | Where-Object { $_ -like "$wordToComplete*" } | ForEach-Object {
            [System.Management.Automation.CompletionResult]::new($_, $_, 'ParameterValue', $_)
        }
    }
    elseif ($tokens.Count -gt 2) {
        $subcommand = $tokens[1]

        switch ($subcommand) {
            { $_ -in 'lock','update','renew','release','status' } {
                @('--config', '--quiet', '-q', '--json') |
                    Where-Object { $_ -like "$wordToComplete*" } | ForEach-Object {
                        [System.Management.Automation.CompletionResult]::new($_, $_, 'ParameterValue', $_)
                    }
            }
            'gc' {
                @('--config') |
                    Where-Object { $_ -like "$wordToComplete*" } | ForEach-Object {
                        [System.Management.Automation.CompletionResult]::new($_, $_, 'ParameterValue', $_)
                    }
            }
            'completion' {
                @('bash', 'zsh', 'fish', 'powershell') |
                    Where-Object { $_ -like "$wordToComplete*" } | ForEach-Object {
                        [System.Management.Automation.CompletionResult]::new($_, $_, 'ParameterValue', $_)
                    }
            }
        }
    }
}
`, strings.Join(cmdArray, ", "))
}

// getCommandDescription returns a short description for a command.
func getCommandDescription(cmd string) string {
	descriptions := map[string]string{
		"init":       "Interactively configure a ledger",
		"lock":       "Acquire the lease, print the payload",
		"update":     "Acquire the lease and publish a new payload",
		"renew":      "Renew a held lease without changing the payload",
		"release":    "Release a held lease",
		"status":     "Show the ledger's current lease and payload",
		"gc":         "Garbage-collect leaked ephemeral refs",
		"completion": "Generate shell completion script",
		"help":       "Show help information",
	}
	if desc, ok := descriptions[cmd]; ok {
		return desc
	}
	return ""
}
