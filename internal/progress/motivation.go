package progress

import (
	"fmt"

	"github.com/julianstephens/habita/internal/constants"
)

var milestoneMessages = map[int]string{
	3:   "3 days in a row! 🎯 Great start!",
	7:   "One full week! 🌟 The habit is taking hold!",
	14:  "Two weeks strong! 💪 Excellent work!",
	21:  "Three weeks! 🚀 Almost a habit for good!",
	30:  "One month! 🏆 This is part of your routine now!",
	50:  "50 days straight! ✨ Remarkable consistency!",
	100: "100 days! 🎊 A legendary achievement!",
	365: "A whole year! 🌈 You are a true habit master!",
}

// MilestoneMessage returns a celebratory message for milestone streak lengths
// and "" for everything else.
func MilestoneMessage(streak int) string {
	if msg, ok := milestoneMessages[streak]; ok {
		return msg
	}
	if streak > 0 && streak%constants.GenericMilestoneOf == 0 {
		return fmt.Sprintf("%d-day streak! 🎉 An unbelievable record!", streak)
	}
	return ""
}

// IsMilestone reports whether streak has a milestone message.
func IsMilestone(streak int) bool {
	return MilestoneMessage(streak) != ""
}
