package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/cognos-ai/cognos/internal/agent"
)

var (
	runMaxIterations int
	runTimeoutMS     int
	runNoTools       bool
	runWhitelist     []string
	runShowTrace     bool
)

var runCmd = &cobra.Command{
	Use:   "run [prompt]",
	Short: "Run the agent once on a prompt and print the answer",
	Args:  cobra.MinimumNArgs(1),
	Run:   runRun,
}

func init() {
	runCmd.Flags().IntVar(&runMaxIterations, "max-iterations", 0, "iteration budget (0 = policy default)")
	runCmd.Flags().IntVar(&runTimeoutMS, "timeout-ms", 0, "run timeout in milliseconds (0 = default)")
	runCmd.Flags().BoolVar(&runNoTools, "no-tools", false, "disable tool execution for this run")
	runCmd.Flags().StringSliceVar(&runWhitelist, "tools", nil, "restrict execution to these tools")
	runCmd.Flags().BoolVar(&runShowTrace, "trace", false, "print the decision trace as JSON")
}

func runRun(cmd *cobra.Command, args []string) {
	rt, err := buildRuntime()
	if err != nil {
		fmt.Printf("Startup error: %v\n", err)
		os.Exit(1)
	}
	defer rt.close()

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()
	go rt.tracer.Run(ctx)

	req := agent.RunRequest{
		Prompt:        strings.Join(args, " "),
		MaxIterations: runMaxIterations,
		TimeoutMS:     runTimeoutMS,
	}
	if runNoTools {
		allow := false
		req.AllowTools = &allow
	}
	if cmd.Flags().Changed("tools") {
		req.ToolWhitelist = runWhitelist
	}
	if err := req.Validate(rt.loop.Policy()); err != nil {
		fmt.Printf("Invalid request: %v\n", err)
		os.Exit(1)
	}

	resp := rt.loop.Run(ctx, "local", req)

	for _, step := range resp.Steps {
		label := color.YellowString("[%d %s]", step.StepIndex, step.Action)
		detail := step.Thought
		if step.FunctionCall != nil {
			detail = fmt.Sprintf("%s -> %s", step.Thought, step.FunctionCall.Name)
		}
		fmt.Printf("%s %s (conf %.2f)\n", label, detail, step.Confidence)
	}
	fmt.Println()
	if resp.OK {
		fmt.Println(color.GreenString("Answer:"), resp.Answer)
	} else {
		fmt.Println(color.RedString("Run failed:"), resp.Error)
	}

	if runShowTrace {
		data, err := json.MarshalIndent(resp.DecisionTrace, "", "  ")
		if err == nil {
			fmt.Println(string(data))
		}
	}

	cancel()
	rt.tracer.Wait()
	if !resp.OK {
		os.Exit(1)
	}
}
