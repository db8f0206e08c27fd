package main

import (
	"fmt"
	"io"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/at-ishikawa/kioku/internal/dailymix"
	"github.com/at-ishikawa/kioku/internal/learning"
)

func newMixCommand() *cobra.Command {
	var learnerID string
	var date dateFlag
	var maxItems int

	cmd := &cobra.Command{
		Use:   "mix",
		Short: "Show a learner's daily practice session",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			service, _, closeDB, err := openService(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer closeDB()

			session, err := service.GetDailyMix(cmd.Context(), learnerID, date.day, maxItems)
			if err != nil {
				return fmt.Errorf("get daily mix: %w", err)
			}
			printSession(cmd.OutOrStdout(), session)
			return nil
		},
	}
	cmd.Flags().StringVar(&learnerID, "learner", "", "learner id")
	cmd.Flags().Var(&date, "date", "calendar day as YYYY-MM-DD (default today)")
	cmd.Flags().IntVar(&maxItems, "max", 0, "maximum number of items (default from config)")
	_ = cmd.MarkFlagRequired("learner")
	return cmd
}

func newProgressCommand() *cobra.Command {
	var learnerID string

	cmd := &cobra.Command{
		Use:   "progress",
		Short: "Show a learner's XP, level, streak and achievements",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			service, _, closeDB, err := openService(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer closeDB()

			summary, err := service.GetProgress(cmd.Context(), learnerID)
			if err != nil {
				return fmt.Errorf("get progress: %w", err)
			}
			printProgress(cmd.OutOrStdout(), summary)
			return nil
		},
	}
	cmd.Flags().StringVar(&learnerID, "learner", "", "learner id")
	_ = cmd.MarkFlagRequired("learner")
	return cmd
}

func newSubmitCommand() *cobra.Command {
	var req learning.SubmitRequest
	mode := modeFlag("practice")

	cmd := &cobra.Command{
		Use:   "submit",
		Short: "Record one graded answer",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			service, _, closeDB, err := openService(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer closeDB()

			req.Mode = mode.String()
			result, err := service.Submit(cmd.Context(), req)
			if err != nil {
				return fmt.Errorf("submit: %w", err)
			}
			printSubmitResult(cmd.OutOrStdout(), result)
			return nil
		},
	}
	cmd.Flags().StringVar(&req.LearnerID, "learner", "", "learner id")
	cmd.Flags().StringVar(&req.ContentItemID, "item", "", "content item id")
	cmd.Flags().IntVar(&req.Accuracy, "accuracy", 0, "answer accuracy from 0 to 100")
	cmd.Flags().Var(&mode, "mode", "learn or practice")
	cmd.Flags().StringVar(&req.UserAnswer, "answer", "", "the learner's answer")
	cmd.Flags().StringVar(&req.SubmissionID, "submission-id", "", "idempotency key; a repeated id returns the first result")
	cmd.Flags().IntVar(&req.TimeSpentSeconds, "time-spent", 0, "seconds spent on the item")
	_ = cmd.MarkFlagRequired("learner")
	_ = cmd.MarkFlagRequired("item")
	return cmd
}

func printSession(w io.Writer, session dailymix.Session) {
	bold := color.New(color.Bold)
	_, _ = bold.Fprintf(w, "Daily mix for %s on %s\n", session.LearnerID, session.Date.Format(time.DateOnly))
	_, _ = fmt.Fprintf(w, "%d reviews, %d new (%s)\n", session.ReviewCount, session.NewCount, session.Status)
	for i, entry := range session.Items {
		_, _ = fmt.Fprintf(w, "  %2d. %-24s %-16s %s\n", i+1, entry.ContentItemID, entry.SkillCategory, entry.Source)
	}
}

func printProgress(w io.Writer, summary learning.ProgressSummary) {
	bold := color.New(color.Bold)
	_, _ = bold.Fprintf(w, "%s: level %d\n", summary.LearnerID, summary.Level)
	_, _ = fmt.Fprintf(w, "  XP:             %d (%d to next level)\n", summary.TotalXP, summary.XPToNextLevel)
	_, _ = fmt.Fprintf(w, "  Streak:         %d days (longest %d)\n", summary.CurrentStreak, summary.LongestStreak)
	if summary.LastActiveDate != nil {
		_, _ = fmt.Fprintf(w, "  Last active:    %s\n", summary.LastActiveDate.Format(time.DateOnly))
	}
	_, _ = fmt.Fprintf(w, "  Submissions:    %d (%d correct, %d perfect)\n", summary.Submissions, summary.CorrectAnswers, summary.PerfectAnswers)
	_, _ = fmt.Fprintf(w, "  Items started:  %d\n", summary.ItemsStarted)
	if len(summary.Achievements) == 0 {
		return
	}
	_, _ = bold.Fprintln(w, "Achievements")
	for _, unlock := range summary.Achievements {
		_, _ = fmt.Fprintf(w, "  %-20s %s\n", unlock.ID, unlock.UnlockedAt.Format(time.DateOnly))
	}
}

func printSubmitResult(w io.Writer, result learning.SubmitResult) {
	if result.Correct {
		_, _ = color.New(color.FgGreen).Fprintf(w, "Correct! +%d XP\n", result.XPEarned)
	} else {
		_, _ = color.New(color.FgRed).Fprintf(w, "Incorrect. +%d XP\n", result.XPEarned)
	}
	_, _ = fmt.Fprintf(w, "Total XP %d, level %d, streak %d\n", result.TotalXP, result.NewLevel, result.CurrentStreak)
	_, _ = fmt.Fprintf(w, "Next review: %s\n", result.NextDueAt.Format(time.DateOnly))
	if result.LeveledUp {
		_, _ = color.New(color.FgYellow, color.Bold).Fprintf(w, "Level up! You are now level %d\n", result.NewLevel)
	}
	for _, id := range result.AchievementsUnlocked {
		_, _ = color.New(color.FgCyan).Fprintf(w, "Achievement unlocked: %s\n", id)
	}
}
