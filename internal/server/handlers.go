package server

import (
	"encoding/json"
	"errors"
	"strconv"

	"github.com/gofiber/fiber/v2"

	"github.com/julianstephens/habita/internal/habits"
	"github.com/julianstephens/habita/internal/models"
	"github.com/julianstephens/habita/internal/progress"
	"github.com/julianstephens/habita/internal/utils"
)

type handlers struct {
	m *habits.Manager
}

type toggleRequest struct {
	Date string `json:"date"`
	Mood string `json:"mood"`
}

type timedRequest struct {
	Duration float64 `json:"duration"`
	Mood     string  `json:"mood"`
}

type statsResponse struct {
	progress.Stats
	CompletedToday bool              `json:"completedToday"`
	BestPartner    *progress.Partner `json:"bestPartner,omitempty"`
}

type levelResponse struct {
	models.UserLevel
	TotalPoints  int               `json:"totalPoints"`
	Next         *models.UserLevel `json:"next,omitempty"`
	PointsToNext int               `json:"pointsToNext"`
}

func (h *handlers) lookup(c *fiber.Ctx) (models.Habit, error) {
	habit, ok := h.m.Habit(c.Params("id"))
	if !ok {
		return models.Habit{}, fiber.NewError(fiber.StatusNotFound, habits.ErrNotFound.Error())
	}
	return habit, nil
}

func (h *handlers) listHabits(c *fiber.Ctx) error {
	if p := c.Query("page"); p != "" {
		page, err := strconv.Atoi(p)
		if err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "page must be an integer")
		}
		list := h.m.HabitsForPage(page)
		if list == nil {
			list = []models.Habit{}
		}
		return c.JSON(list)
	}
	return c.JSON(h.m.Habits())
}

func (h *handlers) getHabit(c *fiber.Ctx) error {
	habit, err := h.lookup(c)
	if err != nil {
		return err
	}
	return c.JSON(habit)
}

func (h *handlers) createHabit(c *fiber.Ctx) error {
	habit := models.NewHabit("")
	habit.ID = ""
	if err := json.Unmarshal(c.Body(), &habit); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "Invalid request body")
	}
	// history and counters are never client supplied
	habit.CompletionRecords = nil
	habit.CurrentStreak, habit.BestStreak, habit.TotalCompletions, habit.TotalPoints = 0, 0, 0, 0

	created, err := h.m.Create(habit)
	switch {
	case errors.Is(err, habits.ErrPageFull), errors.Is(err, habits.ErrDuplicateID):
		return fiber.NewError(fiber.StatusConflict, err.Error())
	case err != nil:
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}
	return c.Status(fiber.StatusCreated).JSON(created)
}

func (h *handlers) updateHabit(c *fiber.Ctx) error {
	habit, err := h.lookup(c)
	if err != nil {
		return err
	}

	id, records := habit.ID, habit.CompletionRecords
	if err := json.Unmarshal(c.Body(), &habit); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "Invalid request body")
	}
	habit.ID, habit.CompletionRecords = id, records

	if err := habit.Validate(); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}
	h.m.UpdateHabit(habit)

	updated, _ := h.m.Habit(id)
	return c.JSON(updated)
}

func (h *handlers) deleteHabit(c *fiber.Ctx) error {
	if _, err := h.lookup(c); err != nil {
		return err
	}
	h.m.DeleteHabit(c.Params("id"))
	return c.SendStatus(fiber.StatusNoContent)
}

func (h *handlers) toggleHabit(c *fiber.Ctx) error {
	var req toggleRequest
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Invalid request body")
		}
	}

	day := h.m.Now()
	if req.Date != "" {
		parsed, err := utils.ParseDayInLocation(req.Date, h.m.Location())
		if err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "date must be YYYY-MM-DD")
		}
		day = parsed
	}

	res := h.m.ToggleCompletion(c.Params("id"), day, req.Mood)
	if !res.Found {
		return fiber.NewError(fiber.StatusNotFound, habits.ErrNotFound.Error())
	}
	return c.JSON(res)
}

func (h *handlers) completeTimed(c *fiber.Ctx) error {
	habit, err := h.lookup(c)
	if err != nil {
		return err
	}
	if habit.Type != models.HabitTypeTimed {
		return fiber.NewError(fiber.StatusBadRequest, "habit is not a timed habit")
	}

	var req timedRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "Invalid request body")
	}
	if req.Duration <= 0 {
		return fiber.NewError(fiber.StatusBadRequest, "duration must be positive")
	}

	res := h.m.CompleteTimedHabit(habit.ID, req.Duration, req.Mood)
	if !res.Found {
		return fiber.NewError(fiber.StatusNotFound, habits.ErrNotFound.Error())
	}
	return c.JSON(res)
}

func (h *handlers) habitStats(c *fiber.Ctx) error {
	habit, err := h.lookup(c)
	if err != nil {
		return err
	}
	stats, ok := h.m.Statistics(habit.ID)
	if !ok {
		return fiber.NewError(fiber.StatusNotFound, habits.ErrNotFound.Error())
	}

	resp := statsResponse{
		Stats:          stats,
		CompletedToday: habit.IsCompletedToday(h.m.Now(), h.m.Location()),
	}
	if partner, ok := h.m.BestPartner(habit.ID); ok {
		resp.BestPartner = &partner
	}
	return c.JSON(resp)
}

func (h *handlers) compatibility(c *fiber.Ctx) error {
	a, b := c.Query("a"), c.Query("b")
	if a == "" || b == "" {
		return fiber.NewError(fiber.StatusBadRequest, "query parameters a and b are required")
	}
	if _, ok := h.m.Habit(a); !ok {
		return fiber.NewError(fiber.StatusNotFound, habits.ErrNotFound.Error())
	}
	if _, ok := h.m.Habit(b); !ok {
		return fiber.NewError(fiber.StatusNotFound, habits.ErrNotFound.Error())
	}
	return c.JSON(fiber.Map{"a": a, "b": b, "score": h.m.Compatibility(a, b)})
}

func (h *handlers) level(c *fiber.Ctx) error {
	points := h.m.TotalPoints()
	lvl := models.LevelForPoints(points)
	resp := levelResponse{UserLevel: lvl, TotalPoints: points}
	if next := models.NextLevel(lvl); next != nil {
		resp.Next = next
		resp.PointsToNext = next.RequiredPoints - points
	}
	return c.JSON(resp)
}

func (h *handlers) motivation(c *fiber.Ctx) error {
	streak, err := strconv.Atoi(c.Params("streak"))
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "streak must be an integer")
	}
	return c.JSON(fiber.Map{"streak": streak, "message": h.m.MotivationMessage(streak)})
}
