package main

import (
	"context"
	"fmt"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/status"

	"github.com/rl1809/obesho/internal/adapter/handler"
)

var (
	grpcAddr      string
	modelID       int64
	sizeID        int64
	totalRequests int
	timeout       time.Duration
)

var rootCmd = &cobra.Command{
	Use:   "stress_test",
	Short: "Fire concurrent one-unit AddItem calls at a running server and check nothing is oversold",
	RunE: func(cmd *cobra.Command, args []string) error {
		return run(cmd.Context())
	},
}

func init() {
	rootCmd.Flags().StringVar(&grpcAddr, "addr", "localhost:50051", "gRPC address of the server")
	rootCmd.Flags().Int64Var(&modelID, "model", 1, "Model id to reserve")
	rootCmd.Flags().Int64Var(&sizeID, "size", 35, "Size id to reserve")
	rootCmd.Flags().IntVarP(&totalRequests, "requests", "n", 50, "Number of concurrent requests")
	rootCmd.Flags().DurationVar(&timeout, "timeout", 30*time.Second, "Overall deadline")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	conn, err := grpc.NewClient(grpcAddr, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return fmt.Errorf("failed to connect %s: %w", grpcAddr, err)
	}
	defer conn.Close()
	client := handler.NewOrderServiceClient(conn)

	initialStock, err := stockOf(ctx, client)
	if err != nil {
		return err
	}

	var successCount atomic.Int32
	var soldOutCount atomic.Int32
	var failCount atomic.Int32

	var wg sync.WaitGroup
	start := time.Now()

	for i := 0; i < totalRequests; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()

			reqCtx := handler.WithIdempotencyKey(ctx, uuid.NewString())
			_, err := client.AddItem(reqCtx, &handler.AddItemRequest{ModelID: modelID, SizeID: sizeID})
			switch status.Code(err) {
			case codes.OK:
				successCount.Add(1)
			case codes.FailedPrecondition:
				soldOutCount.Add(1)
			default:
				failCount.Add(1)
			}
		}()
	}

	wg.Wait()
	elapsed := time.Since(start)

	finalStock, err := stockOf(ctx, client)
	if err != nil {
		return err
	}

	success := int(successCount.Load())
	soldOut := int(soldOutCount.Load())

	fmt.Println("========== STRESS TEST RESULTS ==========")
	fmt.Printf("Initial Stock:    %d\n", initialStock)
	fmt.Printf("Total Requests:   %d\n", totalRequests)
	fmt.Printf("Successful:       %d\n", success)
	fmt.Printf("Sold Out:         %d\n", soldOut)
	fmt.Printf("Failed:           %d\n", failCount.Load())
	fmt.Printf("Final Stock:      %d\n", finalStock)
	fmt.Printf("Duration:         %v\n", elapsed)
	fmt.Println("==========================================")

	wantSuccess := min(initialStock, totalRequests)
	if success != wantSuccess {
		return fmt.Errorf("FAIL: expected %d reservations, got %d", wantSuccess, success)
	}
	if finalStock != initialStock-success {
		return fmt.Errorf("FAIL: expected final stock %d, got %d", initialStock-success, finalStock)
	}
	fmt.Println("PASS: stock never oversold")
	return nil
}

func stockOf(ctx context.Context, client *handler.OrderServiceClient) (int, error) {
	catalog, err := client.GetCatalog(ctx, &handler.GetCatalogRequest{})
	if err != nil {
		return 0, fmt.Errorf("failed to read catalog: %w", err)
	}
	for _, m := range catalog.Models {
		if m.ID != modelID {
			continue
		}
		for _, s := range m.AvailableSizes {
			if s.SizeID == sizeID {
				return s.Qty, nil
			}
		}
	}
	return 0, fmt.Errorf("model %d is not stocked in size %d", modelID, sizeID)
}
