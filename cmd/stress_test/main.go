package main

import (
	"context"
	"database/sql"
	"flag"
	"fmt"
	"log"
	"sync"
	"sync/atomic"
	"time"

	_ "github.com/go-sql-driver/mysql"
	"github.com/google/uuid"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	"github.com/rl1809/production-schedule/internal/adapter/handler"
	"github.com/rl1809/production-schedule/internal/adapter/storage"
	"github.com/rl1809/production-schedule/internal/core/domain"
)

func main() {
	grpcAddr := flag.String("grpc", "localhost:50051", "schedule service gRPC address")
	mysqlDSN := flag.String("mysql", "root:root@tcp(localhost:3306)/production?parseTime=true", "catalog MySQL DSN")
	totalRequests := flag.Int("requests", 50, "number of concurrent requests")
	quantity := flag.Int("quantity", 3, "quantity per request")
	flag.Parse()

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	// Seed a fresh product so every run aggregates into a new schedule
	db, err := sql.Open("mysql", *mysqlDSN)
	if err != nil {
		log.Fatalf("failed to connect mysql: %v", err)
	}
	defer db.Close()

	wheel := "16 inch"
	product := domain.Product{
		ID:   uuid.NewString(),
		Name: "stress-bike-" + time.Now().Format("150405"),
		Parts: []domain.Part{
			{Name: "Frame", UnitQuantity: 1},
			{Name: "Wheel", Measurements: &wheel, UnitQuantity: 2},
			{Name: "Spoke", UnitQuantity: 36},
		},
	}
	if err := storage.NewMySQLAdapter(db).Migrate(ctx); err != nil {
		log.Fatalf("failed to migrate schema: %v", err)
	}
	if err := storage.NewMySQLCatalog(db).SaveProduct(ctx, product); err != nil {
		log.Fatalf("failed to seed product: %v", err)
	}

	conn, err := grpc.NewClient(*grpcAddr, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		log.Fatalf("failed to dial grpc: %v", err)
	}
	defer conn.Close()
	client := handler.NewScheduleClient(conn)

	date := domain.Day(time.Now()).Format(domain.DateLayout)

	var successCount atomic.Int32
	var failCount atomic.Int32

	var wg sync.WaitGroup
	start := time.Now()

	for i := 0; i < *totalRequests; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()

			_, err := client.CreateOrAccumulateSchedule(ctx, &handler.CreateScheduleRequest{
				RequestID:     uuid.NewString(),
				ProductID:     product.ID,
				ScheduledDate: date,
				Quantity:      int32(*quantity),
			})
			if err == nil {
				successCount.Add(1)
			} else {
				log.Printf("request failed: %v", err)
				failCount.Add(1)
			}
		}()
	}

	wg.Wait()
	elapsed := time.Since(start)

	success := successCount.Load()
	fail := failCount.Load()

	fmt.Println("========== STRESS TEST RESULTS ==========")
	fmt.Printf("Product:          %s\n", product.ID)
	fmt.Printf("Total Requests:   %d\n", *totalRequests)
	fmt.Printf("Successful:       %d\n", success)
	fmt.Printf("Failed:           %d\n", fail)
	fmt.Printf("Duration:         %v\n", elapsed)
	fmt.Println("==========================================")

	resp, err := client.ListSchedules(ctx, &handler.ListSchedulesRequest{ScheduledDate: date})
	if err != nil {
		log.Fatalf("failed to list schedules: %v", err)
	}

	var matched []handler.ScheduleMessage
	for _, s := range resp.Schedules {
		if s.ProductID == product.ID {
			matched = append(matched, s)
		}
	}

	if len(matched) != 1 {
		fmt.Printf("FAIL: Expected 1 schedule for the product, got %d\n", len(matched))
		return
	}
	fmt.Println("PASS: Requests aggregated into a single schedule")

	want := int(success) * *quantity
	if matched[0].Quantity == want {
		fmt.Printf("PASS: Schedule quantity is %d\n", want)
	} else {
		fmt.Printf("FAIL: Expected quantity %d, got %d\n", want, matched[0].Quantity)
	}

	for _, p := range matched[0].Parts {
		fmt.Printf("  %-8s %d\n", p.Name, p.Quantity)
	}
}
