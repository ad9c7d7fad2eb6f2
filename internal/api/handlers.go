package api

import (
	"errors"
	"math/big"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/ethereum/go-ethereum/common"

	"github.com/rigwatch/custodian/internal/controller"
	"github.com/rigwatch/custodian/internal/models"
	"github.com/rigwatch/custodian/internal/rig"
	"github.com/rigwatch/custodian/internal/roles"
)

// Handlers exposes the controller over HTTP. Authorization happens in the
// controller against the caller address carried by each mutating request;
// the handlers only parse and translate.
type Handlers struct {
	ctrl *controller.Controller
}

func NewHandlers(ctrl *controller.Controller) *Handlers {
	return &Handlers{ctrl: ctrl}
}

func (h *Handlers) HealthCheck(c echo.Context) error {
	return c.JSON(http.StatusOK, models.APIResponse{
		Success: true,
		Message: "custodian service is healthy",
		Data:    map[string]string{"status": "ok", "service": "custodian"},
	})
}

func (h *Handlers) GetStatus(c echo.Context) error {
	status, err := h.ctrl.StatusReport(c.Request().Context())
	if err != nil {
		return errorResponse(c, err)
	}
	return c.JSON(http.StatusOK, statusBody(status))
}

func (h *Handlers) GetEligibility(c echo.Context) error {
	elig, err := h.ctrl.CheckEligibility(c.Request().Context())
	if err != nil {
		return errorResponse(c, err)
	}
	return c.JSON(http.StatusOK, models.EligibilityResponse{
		Eligible:          elig.Eligible,
		Reason:            string(elig.Reason),
		CurrentPrice:      elig.CurrentPrice.String(),
		RecommendedAmount: elig.RecommendedAmount.String(),
		PriceOK:           elig.PriceOK,
		TimeOK:            elig.TimeOK,
		CheckedAt:         elig.CheckedAt,
	})
}

func (h *Handlers) GetEvents(c echo.Context) error {
	events := h.ctrl.Events()
	body := models.EventsResponse{Events: make([]models.EventBody, 0, len(events))}
	for _, e := range events {
		body.Events = append(body.Events, models.EventBody{
			ID: e.ID, Type: e.Type, At: e.At, Fields: e.Fields,
		})
	}
	return c.JSON(http.StatusOK, body)
}

func (h *Handlers) ExecuteMine(c echo.Context) error {
	var req models.MineRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid request body")
	}
	caller, ok := parseAddress(req.Caller)
	if !ok {
		return badRequest(c, "invalid caller address")
	}
	recipient := h.ctrl.Account()
	if req.Recipient != "" {
		if recipient, ok = parseAddress(req.Recipient); !ok {
			return badRequest(c, "invalid recipient address")
		}
	}

	result, err := h.ctrl.ExecuteMine(c.Request().Context(), caller, recipient, req.Metadata)
	if err != nil {
		return errorResponse(c, err)
	}
	return c.JSON(http.StatusOK, models.MineResponse{
		Recipient: result.Recipient.Hex(),
		PricePaid: result.PricePaid.String(),
		Epoch:     result.Epoch,
		MintedAt:  result.At,
	})
}

func (h *Handlers) UpdateConfig(c echo.Context) error {
	var req models.UpdateConfigRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid request body")
	}
	caller, ok := parseAddress(req.Caller)
	if !ok {
		return badRequest(c, "invalid caller address")
	}
	record, err := recordFromBody(req.Config)
	if err != nil {
		return badRequest(c, err.Error())
	}

	if err := h.ctrl.UpdateConfig(caller, record); err != nil {
		return errorResponse(c, err)
	}
	return c.JSON(http.StatusOK, models.APIResponse{Success: true, Message: "configuration updated"})
}

func (h *Handlers) EmergencyStop(c echo.Context) error {
	var req models.CallerRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid request body")
	}
	caller, ok := parseAddress(req.Caller)
	if !ok {
		return badRequest(c, "invalid caller address")
	}

	if err := h.ctrl.EmergencyStop(caller); err != nil {
		return errorResponse(c, err)
	}
	return c.JSON(http.StatusOK, models.APIResponse{Success: true, Message: "auto mining disabled"})
}

func (h *Handlers) UpdateRig(c echo.Context) error {
	var req models.UpdateRigRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid request body")
	}
	caller, ok := parseAddress(req.Caller)
	if !ok {
		return badRequest(c, "invalid caller address")
	}
	target, ok := parseAddress(req.Target)
	if !ok {
		return badRequest(c, "invalid target address")
	}

	if err := h.ctrl.UpdateTargetRig(c.Request().Context(), caller, target); err != nil {
		return errorResponse(c, err)
	}
	return c.JSON(http.StatusOK, models.APIResponse{Success: true, Message: "target rig updated"})
}

func (h *Handlers) Withdraw(c echo.Context) error {
	var req models.WithdrawRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid request body")
	}
	caller, ok := parseAddress(req.Caller)
	if !ok {
		return badRequest(c, "invalid caller address")
	}
	to, ok := parseAddress(req.To)
	if !ok {
		return badRequest(c, "invalid destination address")
	}

	params := controller.WithdrawParams{
		Asset: controller.AssetKind(req.Asset),
		To:    to,
	}
	if req.Token != "" {
		tokenAddr, ok := parseAddress(req.Token)
		if !ok {
			return badRequest(c, "invalid token address")
		}
		params.TokenAddress = tokenAddr
	}
	if req.Amount != "" {
		amount, ok := new(big.Int).SetString(req.Amount, 10)
		if !ok {
			return badRequest(c, "invalid amount")
		}
		params.Amount = amount
	}

	withdrawn, err := h.ctrl.Withdraw(c.Request().Context(), caller, params)
	if err != nil {
		return errorResponse(c, err)
	}
	return c.JSON(http.StatusOK, models.WithdrawResponse{
		Asset:     req.Asset,
		To:        to.Hex(),
		Withdrawn: withdrawn.String(),
	})
}

func parseAddress(s string) (common.Address, bool) {
	if !common.IsHexAddress(s) {
		return common.Address{}, false
	}
	return common.HexToAddress(s), true
}

func statusBody(s *controller.Status) models.StatusResponse {
	body := models.StatusResponse{
		Enabled:      s.Enabled,
		Phase:        string(s.Phase),
		RigAddress:   s.RigAddress,
		CurrentPrice: s.CurrentPrice.String(),
		Epoch:        s.Epoch,
		TokenBalance: s.TokenBalance.String(),
		PriceOK:      s.PriceOK,
		TimeOK:       s.TimeOK,
		Config:       configBody(s.Config),
	}
	if s.NativeBalance != nil {
		body.NativeBalance = s.NativeBalance.String()
	}
	if !s.LastMint.IsZero() {
		last, cooldown, timeBased := s.LastMint, s.NextCooldownEligible, s.NextTimeBasedEligible
		body.LastMint = &last
		body.NextCooldownEligible = &cooldown
		body.NextTimeBasedEligible = &timeBased
	}
	return body
}

func configBody(cfg controller.MiningConfig) models.ConfigBody {
	return models.ConfigBody{
		MaxMiningPrice:     cfg.MaxMiningPrice.String(),
		MinProfitMarginBps: cfg.MinProfitMargin,
		MaxMintAmount:      cfg.MaxMintAmount.String(),
		MinMintAmount:      cfg.MinMintAmount.String(),
		AutoMiningEnabled:  cfg.AutoMiningEnabled,
		CooldownSeconds:    int64(cfg.CooldownPeriod.Seconds()),
		MaxGasPrice:        cfg.MaxGasPrice.String(),
		TimeBasedMintSecs:  int64(cfg.TimeBasedMintPeriod.Seconds()),
	}
}

func recordFromBody(body models.ConfigBody) (controller.MiningConfig, error) {
	maxPrice, ok := new(big.Int).SetString(body.MaxMiningPrice, 10)
	if !ok {
		return controller.MiningConfig{}, errors.New("max_mining_price is not a base-10 integer")
	}
	maxMint, ok := new(big.Int).SetString(body.MaxMintAmount, 10)
	if !ok {
		return controller.MiningConfig{}, errors.New("max_mint_amount is not a base-10 integer")
	}
	minMint, ok := new(big.Int).SetString(body.MinMintAmount, 10)
	if !ok {
		return controller.MiningConfig{}, errors.New("min_mint_amount is not a base-10 integer")
	}
	maxGas, ok := new(big.Int).SetString(body.MaxGasPrice, 10)
	if !ok {
		return controller.MiningConfig{}, errors.New("max_gas_price is not a base-10 integer")
	}
	return controller.MiningConfig{
		MaxMiningPrice:      maxPrice,
		MinProfitMargin:     body.MinProfitMarginBps,
		MaxMintAmount:       maxMint,
		MinMintAmount:       minMint,
		AutoMiningEnabled:   body.AutoMiningEnabled,
		CooldownPeriod:      time.Duration(body.CooldownSeconds) * time.Second,
		MaxGasPrice:         maxGas,
		TimeBasedMintPeriod: time.Duration(body.TimeBasedMintSecs) * time.Second,
	}, nil
}

func badRequest(c echo.Context, msg string) error {
	return c.JSON(http.StatusBadRequest, models.ErrorResponse{
		Error:   "bad_request",
		Message: msg,
		Code:    http.StatusBadRequest,
	})
}

// errorResponse maps the controller's error taxonomy onto HTTP statuses:
// authorization 403, validation 400, guard failures 409, rig rejections
// 502, anything else 500. The monitor treats 409 and 502 as retry-later.
func errorResponse(c echo.Context, err error) error {
	var (
		code = http.StatusInternalServerError
		kind = "internal"
	)
	switch {
	case errors.Is(err, roles.ErrUnauthorized):
		code, kind = http.StatusForbidden, "unauthorized"
	case errors.Is(err, controller.ErrInvalidConfig),
		errors.Is(err, controller.ErrZeroAddress),
		errors.Is(err, controller.ErrAmountExceedsBalance),
		errors.Is(err, roles.ErrZeroAddress),
		errors.Is(err, roles.ErrLastOwner):
		code, kind = http.StatusBadRequest, "validation"
	case errors.Is(err, controller.ErrMiningDisabled),
		errors.Is(err, controller.ErrCooldownActive),
		errors.Is(err, controller.ErrGasPriceTooHigh),
		errors.Is(err, controller.ErrNotEligible),
		errors.Is(err, controller.ErrInsufficientBalance),
		errors.Is(err, controller.ErrReentrantCall):
		code, kind = http.StatusConflict, "guard_failure"
	case errors.Is(err, rig.ErrEpochAdvanced),
		errors.Is(err, rig.ErrDeadlineExceeded),
		errors.Is(err, rig.ErrPriceExceeded):
		code, kind = http.StatusBadGateway, "rig_rejection"
	}
	return c.JSON(code, models.ErrorResponse{
		Error:   kind,
		Message: err.Error(),
		Code:    code,
	})
}
