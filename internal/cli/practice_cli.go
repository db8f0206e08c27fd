// Package cli runs interactive practice sessions in the terminal.
package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/google/uuid"

	"github.com/at-ishikawa/kioku/internal/catalog"
	"github.com/at-ishikawa/kioku/internal/dailymix"
	"github.com/at-ishikawa/kioku/internal/learning"
)

var errEnd = errors.New("end")

const (
	// quitCommand ends a practice session early.
	quitCommand = ":q"
	// submitAttempts bounds how often one answer is sent when saving it fails transiently.
	submitAttempts = 2
)

//go:generate mockgen -source=practice_cli.go -destination=../mocks/cli/mock_session.go -package=mock_cli Session

type Session interface {
	Session(ctx context.Context) error
}

// PracticeService is the part of learning.Service a practice session uses.
type PracticeService interface {
	Submit(ctx context.Context, req learning.SubmitRequest) (learning.SubmitResult, error)
	GetDailyMix(ctx context.Context, learnerID string, date time.Time, maxItems int) (dailymix.Session, error)
}

// Summary accumulates the outcome of a practice session.
type Summary struct {
	Answered     int
	Correct      int
	XPEarned     int
	Level        int
	Achievements []string
}

// PracticeCLI walks a learner through today's session one item at a time.
type PracticeCLI struct {
	service   PracticeService
	catalog   *catalog.Catalog
	learnerID string
	mode      string

	entries []dailymix.Entry
	total   int
	summary Summary

	stdinReader  *bufio.Reader
	stdoutWriter io.Writer
	bold         *color.Color
	italic       *color.Color
}

// NewPracticeCLI fetches the learner's daily mix and prepares a session over it.
func NewPracticeCLI(
	ctx context.Context,
	service PracticeService,
	cat *catalog.Catalog,
	learnerID string,
	mode string,
	maxItems int,
	stdin io.Reader,
	stdout io.Writer,
) (*PracticeCLI, error) {
	session, err := service.GetDailyMix(ctx, learnerID, time.Time{}, maxItems)
	if err != nil {
		return nil, fmt.Errorf("service.GetDailyMix(%s) > %w", learnerID, err)
	}

	return &PracticeCLI{
		service:      service,
		catalog:      cat,
		learnerID:    learnerID,
		mode:         mode,
		entries:      session.Items,
		total:        len(session.Items),
		stdinReader:  bufio.NewReader(stdin),
		stdoutWriter: stdout,
		bold:         color.New(color.Bold),
		italic:       color.New(color.Italic),
	}, nil
}

// Remaining returns the number of entries not yet answered.
func (cli *PracticeCLI) Remaining() int {
	return len(cli.entries)
}

func (cli *PracticeCLI) Summary() Summary {
	return cli.summary
}

// Session asks for one answer and submits it. It returns errEnd once the
// session is complete or the learner quits.
func (cli *PracticeCLI) Session(ctx context.Context) error {
	if len(cli.entries) == 0 {
		_, _ = fmt.Fprintln(cli.stdoutWriter, "No more items to practice!")
		return errEnd
	}
	entry := cli.entries[0]
	item, ok := cli.catalog.Get(entry.ContentItemID)
	if !ok {
		// retired between composing the mix and answering it
		cli.entries = cli.entries[1:]
		return nil
	}

	_, _ = fmt.Fprintf(cli.stdoutWriter, "\n[%d/%d] ", cli.total-len(cli.entries)+1, cli.total)
	_, _ = cli.italic.Fprintf(cli.stdoutWriter, "%s, %s\n", item.SkillCategory, entry.Source)
	_, _ = cli.bold.Fprintf(cli.stdoutWriter, "%s: ", item.ID)

	answer, err := cli.readLine()
	if err != nil {
		return err
	}
	if answer == quitCommand {
		return errEnd
	}

	accuracy := 100
	if !item.IsCorrectAnswer(answer) {
		if item.CorrectAnswer != "" {
			_, _ = fmt.Fprintf(cli.stdoutWriter, "The answer is %q.\n", item.CorrectAnswer)
		}
		accuracy, err = cli.askAccuracy()
		if err != nil {
			return err
		}
	}

	result, err := cli.submit(ctx, learning.SubmitRequest{
		SubmissionID:  uuid.NewString(),
		LearnerID:     cli.learnerID,
		ContentItemID: item.ID,
		Accuracy:      accuracy,
		UserAnswer:    answer,
		Mode:          cli.mode,
	})
	if err != nil {
		return fmt.Errorf("service.Submit(%s) > %w", item.ID, err)
	}
	cli.entries = cli.entries[1:]
	cli.record(result)
	cli.printResult(result)
	return nil
}

// submit resends the same submission id after a retryable failure, so an
// answer that was stored before the failure is not counted twice.
func (cli *PracticeCLI) submit(ctx context.Context, req learning.SubmitRequest) (learning.SubmitResult, error) {
	var err error
	for attempt := 1; attempt <= submitAttempts; attempt++ {
		var result learning.SubmitResult
		result, err = cli.service.Submit(ctx, req)
		if err == nil {
			return result, nil
		}
		if !learning.IsRetryable(err) {
			return learning.SubmitResult{}, err
		}
		_, _ = fmt.Fprintln(cli.stdoutWriter, "Could not save the answer, retrying...")
	}
	return learning.SubmitResult{}, err
}

func (cli *PracticeCLI) record(result learning.SubmitResult) {
	cli.summary.Answered++
	if result.Correct {
		cli.summary.Correct++
	}
	cli.summary.XPEarned += result.XPEarned
	cli.summary.Level = result.NewLevel
	cli.summary.Achievements = append(cli.summary.Achievements, result.AchievementsUnlocked...)
}

func (cli *PracticeCLI) printResult(result learning.SubmitResult) {
	if result.Correct {
		_, _ = color.New(color.FgGreen).Fprintf(cli.stdoutWriter, "Correct! +%d XP\n", result.XPEarned)
	} else {
		_, _ = color.New(color.FgRed).Fprintf(cli.stdoutWriter, "Not quite. +%d XP\n", result.XPEarned)
	}
	_, _ = fmt.Fprintf(cli.stdoutWriter, "Next review: %s\n", result.NextDueAt.Format(time.DateOnly))
	if result.LeveledUp {
		_, _ = color.New(color.FgYellow, color.Bold).Fprintf(cli.stdoutWriter, "Level up! You are now level %d\n", result.NewLevel)
	}
	for _, id := range result.AchievementsUnlocked {
		_, _ = color.New(color.FgCyan).Fprintf(cli.stdoutWriter, "Achievement unlocked: %s\n", id)
	}
}

// askAccuracy lets the learner grade an answer the catalog cannot check.
func (cli *PracticeCLI) askAccuracy() (int, error) {
	for {
		_, _ = fmt.Fprint(cli.stdoutWriter, "How close was your answer? (0-100, empty for 0): ")
		line, err := cli.readLine()
		if err != nil {
			return 0, err
		}
		if line == "" {
			return 0, nil
		}
		accuracy, err := strconv.Atoi(line)
		if err == nil && accuracy >= 0 && accuracy <= 100 {
			return accuracy, nil
		}
		_, _ = fmt.Fprintln(cli.stdoutWriter, "Please enter a number between 0 and 100.")
	}
}

func (cli *PracticeCLI) readLine() (string, error) {
	line, err := cli.stdinReader.ReadString('\n')
	if errors.Is(err, io.EOF) && line == "" {
		return "", errEnd
	}
	if err != nil && !errors.Is(err, io.EOF) {
		return "", fmt.Errorf("error reading input: %w", err)
	}
	return strings.TrimSpace(line), nil
}

// Run repeats session until it ends, fails or the process is interrupted.
func Run(ctx context.Context, session Session) error {
	ctx, cancel := signal.NotifyContext(
		ctx,
		os.Interrupt,
	)
	defer cancel()

	errCh := make(chan error, 1)
	go func() {
		defer close(errCh)

		for {
			select {
			case <-ctx.Done():
				return
			default:
			}

			if err := session.Session(ctx); err != nil {
				if !errors.Is(err, errEnd) {
					errCh <- err
				}
				return
			}
		}
	}()
	select {
	case <-ctx.Done():
		fmt.Println("Received interrupt signal, exiting...")
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("error: %w", err)
		}
	}
	return nil
}

// PrintSummary writes the totals of a finished session.
func PrintSummary(w io.Writer, summary Summary) {
	_, _ = color.New(color.Bold).Fprintln(w, "\nSession summary")
	_, _ = fmt.Fprintf(w, "  Answered:  %d (%d correct)\n", summary.Answered, summary.Correct)
	_, _ = fmt.Fprintf(w, "  XP earned: %d\n", summary.XPEarned)
	if summary.Level > 0 {
		_, _ = fmt.Fprintf(w, "  Level:     %d\n", summary.Level)
	}
	if len(summary.Achievements) > 0 {
		_, _ = fmt.Fprintf(w, "  Unlocked:  %s\n", strings.Join(summary.Achievements, ", "))
	}
}
