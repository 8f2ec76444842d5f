package handler

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/rl1809/production-schedule/internal/core/domain"
	"github.com/rl1809/production-schedule/internal/core/service"
)

type GRPCHandler struct {
	scheduleService *service.ScheduleService
	logger          *zap.Logger
	now             func() time.Time
}

var _ ScheduleServiceServer = (*GRPCHandler)(nil)

func NewGRPCHandler(scheduleService *service.ScheduleService, logger *zap.Logger) *GRPCHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &GRPCHandler{scheduleService: scheduleService, logger: logger, now: time.Now}
}

func (h *GRPCHandler) CreateOrAccumulateSchedule(ctx context.Context, req *CreateScheduleRequest) (*ScheduleMessage, error) {
	productID, err := uuid.Parse(req.ProductID)
	if err != nil {
		return nil, status.Error(codes.InvalidArgument, "invalid product id")
	}
	date, err := parseScheduledDate(req.ScheduledDate, h.now())
	if err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}

	schedule, err := h.scheduleService.CreateOrAccumulate(ctx, service.ProductionRequest{
		RequestID:     req.RequestID,
		ProductID:     productID.String(),
		ScheduledDate: date,
		Quantity:      int(req.Quantity),
	})
	if err != nil {
		return nil, h.toStatus(err)
	}

	msg := toScheduleMessage(*schedule)
	return &msg, nil
}

func (h *GRPCHandler) SetScheduleStatus(ctx context.Context, req *SetScheduleStatusRequest) (*ScheduleMessage, error) {
	newStatus, err := domain.ParseScheduleStatus(req.Status)
	if err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}

	schedule, err := h.scheduleService.SetStatus(ctx, req.ScheduleID, newStatus)
	if err != nil {
		return nil, h.toStatus(err)
	}

	msg := toScheduleMessage(*schedule)
	return &msg, nil
}

func (h *GRPCHandler) GetSchedule(ctx context.Context, req *GetScheduleRequest) (*ScheduleMessage, error) {
	schedule, err := h.scheduleService.GetSchedule(ctx, req.ScheduleID)
	if err != nil {
		return nil, h.toStatus(err)
	}

	msg := toScheduleMessage(*schedule)
	return &msg, nil
}

func (h *GRPCHandler) DeleteSchedule(ctx context.Context, req *DeleteScheduleRequest) (*DeleteScheduleResponse, error) {
	if err := h.scheduleService.Delete(ctx, req.ScheduleID); err != nil {
		return nil, h.toStatus(err)
	}
	return &DeleteScheduleResponse{}, nil
}

func (h *GRPCHandler) ListSchedules(ctx context.Context, req *ListSchedulesRequest) (*ListSchedulesResponse, error) {
	params := filterParams{
		ScheduledDate: req.ScheduledDate,
		StartDate:     req.StartDate,
		EndDate:       req.EndDate,
		Status:        req.Status,
	}
	if req.Limit != 0 {
		params.Limit = strconv.Itoa(int(req.Limit))
	}
	if req.Offset != 0 {
		params.Offset = strconv.Itoa(int(req.Offset))
	}
	filter, err := params.toFilter()
	if err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}

	schedules, err := h.scheduleService.ListSchedules(ctx, filter)
	if err != nil {
		return nil, h.toStatus(err)
	}

	return &ListSchedulesResponse{Schedules: toScheduleMessages(schedules)}, nil
}

func (h *GRPCHandler) toStatus(err error) error {
	switch {
	case errors.Is(err, service.ErrInvalidQuantity),
		errors.Is(err, service.ErrInvalidStatus),
		errors.Is(err, service.ErrInvalidFilter):
		return status.Error(codes.InvalidArgument, err.Error())
	case errors.Is(err, service.ErrProductNotFound),
		errors.Is(err, service.ErrProductHasNoParts):
		return status.Error(codes.FailedPrecondition, err.Error())
	case errors.Is(err, service.ErrScheduleNotFound):
		return status.Error(codes.NotFound, err.Error())
	case errors.Is(err, service.ErrDuplicateRequest):
		return status.Error(codes.AlreadyExists, err.Error())
	case errors.Is(err, service.ErrScheduleBusy):
		return status.Error(codes.Unavailable, err.Error())
	}

	h.logger.Error("schedule rpc failed", zap.Error(err))
	return status.Error(codes.Internal, "internal error")
}
