package session

import (
	"context"
	"errors"
	"log/slog"
	"math"
	"net/http"
	"strconv"

	"github.com/gofiber/fiber/v2"

	"github.com/flexyearn/flexyearn/internal/ads"
	"github.com/flexyearn/flexyearn/internal/identity"
	"github.com/flexyearn/flexyearn/internal/ledger"
)

// PlayerSource picks the ad player for a request. reported is the outcome
// the web view attached to the request, if any.
type PlayerSource func(reported string) ads.Player

// ClientReported trusts the outcome reported by the web view.
func ClientReported(reported string) ads.Player { return ads.Reported(reported) }

// UserLookup extracts the resolved identity from a request.
type UserLookup func(c *fiber.Ctx) (identity.User, bool)

// Handler exposes the session controllers over HTTP.
type Handler struct {
	manager *Manager
	journal ledger.Journal
	players PlayerSource
	user    UserLookup
	logger  *slog.Logger
}

// NewHandler constructs a session handler.
func NewHandler(manager *Manager, journal ledger.Journal, players PlayerSource, user UserLookup, logger *slog.Logger) *Handler {
	if players == nil {
		players = ClientReported
	}
	return &Handler{manager: manager, journal: journal, players: players, user: user, logger: logger}
}

type adRequest struct {
	AdResult string `json:"ad_result"`
}

type withdrawalRequest struct {
	Name        string `json:"name"`
	Destination string `json:"destination"`
}

// Bootstrap creates or reloads the caller's account.
func (h *Handler) Bootstrap(c *fiber.Ctx) error {
	user, ok := h.user(c)
	if !ok {
		return h.fail(c, ErrNoIdentity)
	}
	s, created, err := h.manager.Bootstrap(c.UserContext(), user)
	if err != nil {
		return h.fail(c, err)
	}
	status := http.StatusOK
	if created {
		status = http.StatusCreated
	}
	return c.Status(status).JSON(fiber.Map{
		"created": created,
		"account": h.viewJSON(s.View()),
	})
}

// Account returns the caller's current state.
func (h *Handler) Account(c *fiber.Ctx) error {
	s, err := h.session(c)
	if err != nil {
		return h.fail(c, err)
	}
	return c.Status(http.StatusOK).JSON(fiber.Map{"account": h.viewJSON(s.View())})
}

// History lists the caller's journal entries, newest first.
func (h *Handler) History(c *fiber.Ctx) error {
	user, ok := h.user(c)
	if !ok {
		return h.fail(c, ErrNoIdentity)
	}
	entries, err := h.journal.History(c.UserContext(), user.ID, c.QueryInt("limit"))
	if err != nil {
		h.logger.Error("load history failed", "account_id", user.ID, "error", err)
		return fiber.NewError(http.StatusServiceUnavailable, "could not load history")
	}
	return c.Status(http.StatusOK).JSON(fiber.Map{"entries": entries})
}

// Cooldown reports the time left before the next reward claim.
func (h *Handler) Cooldown(c *fiber.Ctx) error {
	s, err := h.session(c)
	if err != nil {
		return h.fail(c, err)
	}
	remaining := s.CooldownRemaining()
	return c.Status(http.StatusOK).JSON(fiber.Map{
		"cooldown_seconds": seconds(remaining.Seconds()),
		"can_claim":        remaining == 0,
	})
}

// ClaimReward credits the fixed reward after a watched ad.
func (h *Handler) ClaimReward(c *fiber.Ctx) error {
	var req adRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	s, err := h.session(c)
	if err != nil {
		return h.fail(c, err)
	}
	res, err := s.ClaimReward(c.UserContext(), h.players(req.AdResult))
	if err != nil {
		if errors.Is(err, ErrCoolingDown) {
			c.Set(fiber.HeaderRetryAfter, strconv.Itoa(seconds(s.CooldownRemaining().Seconds())))
		}
		return h.fail(c, err)
	}
	return c.Status(http.StatusOK).JSON(fiber.Map{
		"awarded":          res.Awarded,
		"points":           res.Points,
		"cooldown_seconds": seconds(res.Cooldown.Seconds()),
	})
}

// Spin draws a prize from the daily wheel.
func (h *Handler) Spin(c *fiber.Ctx) error {
	var req adRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	s, err := h.session(c)
	if err != nil {
		return h.fail(c, err)
	}
	res, err := s.Spin(c.UserContext(), h.players(req.AdResult))
	if err != nil {
		return h.fail(c, err)
	}
	return c.Status(http.StatusOK).JSON(fiber.Map{
		"prize":            res.Prize,
		"prize_index":      res.PrizeIndex,
		"prizes":           h.manager.Settings().Prizes,
		"points":           res.Points,
		"spins_left_today": res.SpinsLeft,
	})
}

// Withdraw relays a withdrawal request and debits the balance.
func (h *Handler) Withdraw(c *fiber.Ctx) error {
	var req withdrawalRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	s, err := h.session(c)
	if err != nil {
		return h.fail(c, err)
	}
	res, err := s.Withdraw(c.UserContext(), WithdrawalRequest{Name: req.Name, Destination: req.Destination})
	if err != nil {
		return h.fail(c, err)
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{
		"debited":   res.Debited,
		"points":    res.Points,
		"payout":    res.Payout,
		"completed": res.Completed,
	})
}

func (h *Handler) session(c *fiber.Ctx) (*Session, error) {
	user, ok := h.user(c)
	if !ok {
		return nil, ErrNoIdentity
	}
	return h.manager.Acquire(c.UserContext(), user)
}

// fail renders err as {"error", "recoverable", "fields"}.
func (h *Handler) fail(c *fiber.Ctx, err error) error {
	status, message := statusFor(err)
	body := fiber.Map{
		"error":       message,
		"recoverable": Classify(err) == Recoverable,
	}
	var verr *ValidationError
	if errors.As(err, &verr) {
		body["fields"] = verr.Fields
	}
	return c.Status(status).JSON(body)
}

func statusFor(err error) (int, string) {
	var verr *ValidationError
	switch {
	case errors.As(err, &verr):
		return http.StatusUnprocessableEntity, "please correct the highlighted fields"
	case errors.Is(err, ErrNoIdentity), errors.Is(err, identity.ErrOutsideHost):
		return http.StatusUnauthorized, identity.ErrOutsideHost.Error()
	case errors.Is(err, ErrBootstrap):
		return http.StatusServiceUnavailable, ErrBootstrap.Error()
	case errors.Is(err, ErrCoolingDown):
		return http.StatusTooManyRequests, err.Error()
	case errors.Is(err, ErrBusy), errors.Is(err, ErrNoSpinsLeft), errors.Is(err, ErrClosed):
		return http.StatusConflict, err.Error()
	case errors.Is(err, ErrBelowMinimum):
		return http.StatusUnprocessableEntity, err.Error()
	case errors.Is(err, ads.ErrUnavailable):
		return http.StatusServiceUnavailable, ads.ErrUnavailable.Error()
	case errors.Is(err, ads.ErrNotCompleted):
		return http.StatusUnprocessableEntity, ads.ErrNotCompleted.Error()
	case errors.Is(err, ErrNotifyFailed):
		return http.StatusBadGateway, err.Error()
	case errors.Is(err, ErrNotDebited):
		return http.StatusInternalServerError, ErrNotDebited.Error()
	case errors.Is(err, ErrPersist):
		return http.StatusServiceUnavailable, ErrPersist.Error()
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return http.StatusRequestTimeout, "request cancelled, please retry"
	default:
		return http.StatusInternalServerError, "something went wrong, please retry"
	}
}

func (h *Handler) viewJSON(v View) fiber.Map {
	return fiber.Map{
		"id":               v.User.ID,
		"username":         v.User.Username,
		"first_name":       v.User.FirstName,
		"last_name":        v.User.LastName,
		"points":           v.Points,
		"spins_left_today": v.SpinsLeft,
		"daily_spins":      v.DailySpins,
		"last_spin_at":     v.LastSpinAt,
		"reward_state":     v.RewardState.String(),
		"cooldown_seconds": seconds(v.Cooldown.Seconds()),
		"spinning":         v.Spinning,
		"withdrawing":      v.Withdrawing,
		"min_withdrawal":   v.MinWithdrawal,
		"can_withdraw":     v.Points >= v.MinWithdrawal,
	}
}

func seconds(s float64) int {
	return int(math.Ceil(s))
}
