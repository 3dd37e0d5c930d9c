package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/cognos-ai/cognos/internal/gateway"
)

var gatewayCmd = &cobra.Command{
	Use:   "gateway",
	Short: "Start the HTTP gateway",
	Run:   runGateway,
}

func runGateway(cmd *cobra.Command, args []string) {
	printHeader("Cognos Gateway")

	rt, err := buildRuntime()
	if err != nil {
		fmt.Printf("Startup error: %v\n", err)
		os.Exit(1)
	}
	defer rt.close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigChan)
	go func() {
		<-sigChan
		fmt.Println("Shutting down...")
		cancel()
	}()

	go rt.tracer.Run(ctx)

	srv := gateway.NewServer(gateway.Options{
		Loop:      rt.loop,
		Registry:  rt.registry,
		Store:     rt.store,
		AuthToken: rt.cfg.Gateway.AuthToken,
	})

	addr := fmt.Sprintf("%s:%d", rt.cfg.Gateway.Host, rt.cfg.Gateway.Port)
	if err := srv.ListenAndServe(ctx, addr); err != nil {
		fmt.Printf("Gateway error: %v\n", err)
		rt.tracer.Wait()
		os.Exit(1)
	}
	rt.tracer.Wait()
}
