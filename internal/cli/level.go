package cli

import (
	"fmt"

	"github.com/charmbracelet/lipgloss"

	"github.com/julianstephens/habita/internal/models"
)

type LevelCmd struct{}

func (c *LevelCmd) Run(ctx *Context) (err error) {
	sess, err := ctx.Open()
	if err != nil {
		return err
	}
	defer closeSession(sess, &err)

	m := sess.Manager
	points := m.TotalPoints()
	lvl := m.CurrentLevel()

	badge := lipgloss.NewStyle().Foreground(colorFor(lvl.Color)).Bold(true)
	ctx.println(badge.Render(fmt.Sprintf("Level %d · %s", lvl.Level, lvl.Title)))
	ctx.printf("  %d points\n", points)

	next := models.NextLevel(lvl)
	if next == nil {
		ctx.println("  " + titleStyle.Render("Top level reached"))
		return nil
	}
	span := next.RequiredPoints - lvl.RequiredPoints
	ctx.printf("  %s\n", progressBar(float64(points-lvl.RequiredPoints)/float64(span), 24))
	ctx.printf("  %d points to level %d (%s)\n", next.RequiredPoints-points, next.Level, next.Title)

	best := 0
	for _, h := range m.Habits() {
		best = max(best, h.CurrentStreak)
	}
	ctx.println()
	ctx.println(mutedStyle.Render(m.MotivationMessage(best)))
	return nil
}
