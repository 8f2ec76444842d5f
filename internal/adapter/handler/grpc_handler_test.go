package handler

import (
	"context"
	"net"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"
)

func newTestClient(t *testing.T) *ScheduleClient {
	t.Helper()

	lis := bufconn.Listen(1024 * 1024)
	srv := grpc.NewServer()
	RegisterScheduleServiceServer(srv, NewGRPCHandler(newTestScheduleService(), nil))
	go func() { _ = srv.Serve(lis) }()
	t.Cleanup(srv.Stop)

	conn, err := grpc.NewClient("passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
			return lis.DialContext(ctx)
		}),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })

	return NewScheduleClient(conn)
}

func TestGRPC_CreateAccumulateAndList(t *testing.T) {
	client := newTestClient(t)
	ctx := context.Background()

	first, err := client.CreateOrAccumulateSchedule(ctx, &CreateScheduleRequest{
		ProductID: bikeID, ScheduledDate: "2024-03-10", Quantity: 3,
	})
	require.NoError(t, err)
	assert.Equal(t, 3, first.Quantity)

	second, err := client.CreateOrAccumulateSchedule(ctx, &CreateScheduleRequest{
		ProductID: bikeID, ScheduledDate: "2024-03-10", Quantity: 2,
	})
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, 5, second.Quantity)

	resp, err := client.ListSchedules(ctx, &ListSchedulesRequest{StartDate: "2024-03-01", EndDate: "2024-03-31", Status: "planned"})
	require.NoError(t, err)
	require.Len(t, resp.Schedules, 1)
	assert.Equal(t, first.ID, resp.Schedules[0].ID)

	got, err := client.GetSchedule(ctx, &GetScheduleRequest{ScheduleID: first.ID})
	require.NoError(t, err)
	assert.Equal(t, 5, got.Quantity)
}

func TestGRPC_ProductIDIsCanonicalized(t *testing.T) {
	client := newTestClient(t)
	ctx := context.Background()

	first, err := client.CreateOrAccumulateSchedule(ctx, &CreateScheduleRequest{
		ProductID: strings.ToUpper(bikeID), ScheduledDate: "2024-03-10", Quantity: 1,
	})
	require.NoError(t, err)
	assert.Equal(t, bikeID, first.ProductID)

	second, err := client.CreateOrAccumulateSchedule(ctx, &CreateScheduleRequest{
		ProductID: "urn:uuid:" + bikeID, ScheduledDate: "2024-03-10", Quantity: 1,
	})
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, 2, second.Quantity)
}

func TestGRPC_StatusAndDelete(t *testing.T) {
	client := newTestClient(t)
	ctx := context.Background()

	created, err := client.CreateOrAccumulateSchedule(ctx, &CreateScheduleRequest{
		ProductID: carID, ScheduledDate: "2024-03-10", Quantity: 1,
	})
	require.NoError(t, err)

	updated, err := client.SetScheduleStatus(ctx, &SetScheduleStatusRequest{ScheduleID: created.ID, Status: "completed"})
	require.NoError(t, err)
	assert.Equal(t, "completed", updated.Status)
	assert.Equal(t, created.Parts, updated.Parts)

	_, err = client.DeleteSchedule(ctx, &DeleteScheduleRequest{ScheduleID: created.ID})
	require.NoError(t, err)

	_, err = client.GetSchedule(ctx, &GetScheduleRequest{ScheduleID: created.ID})
	assert.Equal(t, codes.NotFound, status.Code(err))
}

func TestGRPC_ErrorCodes(t *testing.T) {
	client := newTestClient(t)
	ctx := context.Background()

	_, err := client.CreateOrAccumulateSchedule(ctx, &CreateScheduleRequest{ProductID: bikeID, Quantity: 0})
	assert.Equal(t, codes.InvalidArgument, status.Code(err))

	_, err = client.CreateOrAccumulateSchedule(ctx, &CreateScheduleRequest{ProductID: "nope", Quantity: 1})
	assert.Equal(t, codes.InvalidArgument, status.Code(err))

	_, err = client.CreateOrAccumulateSchedule(ctx, &CreateScheduleRequest{ProductID: unpartedID, Quantity: 1})
	assert.Equal(t, codes.FailedPrecondition, status.Code(err))

	_, err = client.SetScheduleStatus(ctx, &SetScheduleStatusRequest{ScheduleID: bikeID, Status: "shipped"})
	assert.Equal(t, codes.InvalidArgument, status.Code(err))

	_, err = client.SetScheduleStatus(ctx, &SetScheduleStatusRequest{ScheduleID: bikeID, Status: "planned"})
	assert.Equal(t, codes.NotFound, status.Code(err))

	_, err = client.ListSchedules(ctx, &ListSchedulesRequest{Limit: -1})
	assert.Equal(t, codes.InvalidArgument, status.Code(err))

	req := &CreateScheduleRequest{RequestID: "dup", ProductID: bikeID, Quantity: 1}
	_, err = client.CreateOrAccumulateSchedule(ctx, req)
	require.NoError(t, err)
	_, err = client.CreateOrAccumulateSchedule(ctx, req)
	assert.Equal(t, codes.AlreadyExists, status.Code(err))
}
