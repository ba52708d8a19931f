// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// setup.go - Provider selection and API key entry.
package cli

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"golang.org/x/term"

	"github.com/jeranaias/dischat/internal/provider"
)

// Setup asks for a provider and its API key and stores both. The provider
// can be preselected with --provider. The key is read without echo; when
// stdin is not a terminal it is read as one line, so keys can be piped in.
func (r *Runner) Setup() error {
	p, err := r.chooseProvider()
	if err != nil {
		return err
	}

	r.printf("\n%s\n", r.Render.style("API key for "+p.Name, TitleStyle.Render))
	if p.KeyURL != "" {
		r.printf("%s\n", r.Render.style("Get one at "+p.KeyURL, DimStyle.Render))
	}

	var key string
	if IsTTY() {
		key = promptSecure("Key")
	} else {
		key = promptInput("")
	}
	if key == "" {
		return ErrMissingArgument("API key", "paste the key when prompted")
	}

	if err := r.App.SetCredentials(p.ID.String(), key); err != nil {
		return err
	}
	if err := r.App.Local().MarkSeen(); err != nil {
		return fmt.Errorf("save setup state: %w", err)
	}

	r.printf("%s Saved %s key %s\n",
		r.Render.style("[OK]", SuccessStyle.Render),
		p.Name,
		r.Render.style("("+r.App.KeyFingerprint()+")", DimStyle.Render))
	return nil
}

func (r *Runner) chooseProvider() (*provider.Provider, error) {
	if r.Args.Provider != "" {
		return provider.Parse(r.Args.Provider)
	}
	if r.Args.Subcommand != "" {
		return provider.Parse(r.Args.Subcommand)
	}
	if err := RequiresTTY("choose a provider"); err != nil {
		return nil, err
	}

	all := provider.All()
	current := r.App.Provider()
	r.printf("%s\n", r.Render.style("Choose a provider", TitleStyle.Render))
	def := 1
	for i, p := range all {
		marker := " "
		if p.ID == current.ID {
			marker = "*"
			def = i + 1
		}
		r.printf(" %s %d) %s\n", marker, i+1, p.Name)
	}

	answer := promptInput(fmt.Sprintf("Provider [%d]: ", def))
	if answer == "" {
		return all[def-1], nil
	}
	if n, err := strconv.Atoi(answer); err == nil {
		if n < 1 || n > len(all) {
			return nil, &ValidationError{Field: "provider", Value: answer, Reason: fmt.Sprintf("choose 1-%d", len(all))}
		}
		return all[n-1], nil
	}
	return provider.Parse(answer)
}

// promptSecure reads a line without echoing it.
// SECURITY: API keys never appear on screen or in shell history
func promptSecure(prompt string) string {
	inputMutex.Lock()
	defer inputMutex.Unlock()

	if prompt != "" {
		fmt.Print(prompt)
		if !strings.HasSuffix(prompt, ": ") && !strings.HasSuffix(prompt, " ") {
			fmt.Print(": ")
		}
	}

	keyBytes, err := term.ReadPassword(int(os.Stdin.Fd()))
	if err != nil {
		return ""
	}
	fmt.Println()

	return strings.TrimSpace(string(keyBytes))
}
