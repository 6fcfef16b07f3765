package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	"github.com/rl1809/stockcanon/internal/adapter/handler"
	"github.com/rl1809/stockcanon/internal/core/domain"
)

const (
	defaultGRPCAddr = "localhost:50051"
	productID       = "stress-test-sku"
	concurrency     = 50
)

var fallbackRate = domain.ConversionRate{Level1Rate: 24, Level2Rate: 12}

// legacyForms renders one slot in every format the normalizer accepts.
func legacyForms(c domain.LocationCode) []string {
	return []string{
		c.String(),
		fmt.Sprintf("%s/%d/%02d", c.Row, c.Level, c.Position),
		fmt.Sprintf("%s-%d-%d", c.Row, c.Level, c.Position),
		fmt.Sprintf("%s.%d.%d", c.Row, c.Level, c.Position),
		fmt.Sprintf("%s%d%02d", c.Row, c.Level, c.Position),
	}
}

type task struct {
	input    string
	expected string
}

func main() {
	addr := os.Getenv("GRPC_TARGET")
	if addr == "" {
		addr = defaultGRPCAddr
	}

	conn, err := grpc.NewClient(addr, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		log.Fatalf("failed to connect grpc: %v", err)
	}
	defer conn.Close()
	client := handler.NewCanonClient(conn)

	var tasks []task
	for _, code := range domain.AllLocationCodes() {
		for _, in := range legacyForms(code) {
			tasks = append(tasks, task{input: in, expected: code.String()})
		}
	}

	queue := make(chan task, len(tasks))
	for _, t := range tasks {
		queue <- t
	}
	close(queue)

	// Counters
	var successCount atomic.Int32
	var mismatchCount atomic.Int32
	var errorCount atomic.Int32

	var wg sync.WaitGroup
	start := time.Now()

	for i := 0; i < concurrency; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for t := range queue {
				ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				ok, err := check(ctx, client, t)
				cancel()

				switch {
				case err != nil:
					errorCount.Add(1)
				case ok:
					successCount.Add(1)
				default:
					mismatchCount.Add(1)
				}
			}
		}()
	}

	wg.Wait()
	elapsed := time.Since(start)

	// Results
	success := successCount.Load()
	mismatch := mismatchCount.Load()
	failed := errorCount.Load()

	fmt.Println("========== STRESS TEST RESULTS ==========")
	fmt.Printf("Total Requests:   %d\n", len(tasks))
	fmt.Printf("Matched:          %d\n", success)
	fmt.Printf("Mismatched:       %d\n", mismatch)
	fmt.Printf("Errors:           %d\n", failed)
	fmt.Printf("Duration:         %v\n", elapsed)
	fmt.Println("==========================================")

	if success == int32(len(tasks)) {
		fmt.Println("PASS: every legacy form normalized and converted consistently")
	} else {
		fmt.Printf("FAIL: expected %d matches, got %d\n", len(tasks), success)
	}
}

// check normalizes t.input remotely, then converts a quantity derived from the
// slot and compares both against local results.
func check(ctx context.Context, client *handler.CanonClient, t task) (bool, error) {
	resp, err := client.Normalize(ctx, &handler.NormalizeRequest{Code: t.input})
	if err != nil {
		return false, err
	}
	if resp.Location != t.expected || !resp.Valid {
		return false, nil
	}

	code, _ := domain.ParseLocation(resp.Location)
	q := domain.QuantityTriple{Level1: code.Level, Level2: code.Position, Level3: int(code.Row[0] - 'A')}
	want, err := domain.ToFlatUnits(q, fallbackRate)
	if err != nil {
		return false, err
	}

	flat, err := client.ToFlatUnits(ctx, &handler.FlatUnitsRequest{
		ProductID: productID,
		Quantity:  q,
		Fallback:  &fallbackRate,
	})
	if err != nil {
		return false, err
	}
	return flat.FlatUnits == want, nil
}
