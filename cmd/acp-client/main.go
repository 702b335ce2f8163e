// Command acp-client is a small command-line driver for the ACP client
// library, covering the same operations as client.py's __main__ usage in
// the example servers: list agents, run one synchronously, and print the
// result.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"

	"github.com/acp-project/acp-go/acpmodel"
	"github.com/acp-project/acp-go/client"
)

func main() {
	baseURLF := flag.String("url", "http://localhost:8080", "ACP server base URL")
	agentF := flag.String("agent", "", "agent name to run")
	textF := flag.String("text", "", "plain text input message")
	listF := flag.Bool("list", false, "list registered agents and exit")
	flag.Parse()

	cl := client.New(*baseURLF)
	ctx := context.Background()

	if *listF {
		agents, err := cl.Agents(ctx)
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
		for _, a := range agents {
			fmt.Printf("%s\t%s\n", a.Name, a.Description)
		}
		return
	}

	if *agentF == "" {
		fmt.Fprintln(os.Stderr, "acp-client: -agent is required unless -list is given")
		os.Exit(1)
	}

	input := []acpmodel.Message{{
		Role:  "user",
		Parts: []acpmodel.MessagePart{acpmodel.TextPart(*textF)},
	}}
	run, err := cl.RunSync(ctx, *agentF, input)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	_ = enc.Encode(run)
}
