// cmd/play.go
//
// "wordlink play": one game in the terminal.
// Responsibilities:
//   - Start a game (optionally today's daily) and print the opening word.
//   - Read moves and slash commands line by line from stdin.
//   - Record the finished round under the "terminal" player.

package cmd

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/robalobadob/wordlink/internal/app"
	"github.com/robalobadob/wordlink/internal/daily"
	"github.com/robalobadob/wordlink/internal/game"
)

// terminalPlayer is the results-database identity of local games.
const terminalPlayer = "terminal"

var (
	playOpts playOptions

	playCmd = &cobra.Command{
		Use:   "play",
		Short: "Play a game in the terminal",
		Long: `Play one game against the machine. Type a word to move, or one of:
  /hint   suggest a word
  /skip   let the machine move for you
  /score  show the chain so far
  /rules  show the rules and the current constraints
  /stop   end the game`,
		RunE: func(cmd *cobra.Command, args []string) error {
			consoleLogger()
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			a, err := app.New(ctx, cfg)
			if err != nil {
				return err
			}
			defer func() {
				cctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
				defer cancel()
				_ = a.Close(cctx)
			}()
			return play(ctx, a, cmd.InOrStdin(), cmd.OutOrStdout(), playOpts)
		},
	}
)

type playOptions struct {
	Variant string
	Opening string
	Daily   bool
}

func init() {
	playCmd.Flags().StringVar(&playOpts.Variant, "variant", string(game.WordChain), "variant to play")
	playCmd.Flags().StringVar(&playOpts.Opening, "opening", "", "force the opening word")
	playCmd.Flags().BoolVar(&playOpts.Daily, "daily", false, "play today's daily game")
}

// play runs one game reading moves from in and writing to out. It returns
// when the game finishes, in is exhausted, or ctx is cancelled.
func play(ctx context.Context, a *app.App, in io.Reader, out io.Writer, o playOptions) error {
	v, err := a.Engine.Variant(game.VariantID(o.Variant))
	if err != nil {
		return err
	}
	start := game.StartOptions{Opening: o.Opening}
	if o.Daily {
		now := time.Now()
		start.Seed = daily.Seed(now, a.Config.DailySalt, o.Variant)
		start.Daily = daily.DateKey(now)
	}
	s, err := a.Engine.Start(ctx, terminalPlayer, v.ID, start)
	if err != nil {
		return err
	}
	if err := a.Sessions.Save(ctx, s); err != nil {
		return err
	}

	fmt.Fprintf(out, "%s\n%s\n\n", v.Name, v.Rules)
	fmt.Fprintf(out, "machine: %s\n", s.Chain[0])
	prompt(out, s)

	sc := bufio.NewScanner(in)
	for s.Phase == game.PhaseActive && sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" {
			continue
		}
		if err := command(ctx, a, out, s, v, line); err != nil {
			return err
		}
		if s.Phase == game.PhaseActive {
			prompt(out, s)
		}
	}
	if s.Phase == game.PhaseActive {
		a.Engine.Stop(s)
	}
	a.Finish(context.WithoutCancel(ctx), terminalPlayer, s)
	fmt.Fprintf(out, "\n%s\n%s\n", outcomeLine(s), s.Summary())
	return sc.Err()
}

// command handles one input line. Only errors that should end the program
// are returned; move rejections are printed.
func command(ctx context.Context, a *app.App, out io.Writer, s *game.Session, v *game.Variant, line string) error {
	var (
		res game.Result
		err error
	)
	switch line {
	case "/hint":
		hint, err := a.Engine.Hint(ctx, s)
		if err != nil {
			fmt.Fprintf(out, "no hint: %v\n", err)
			return nil
		}
		fmt.Fprintf(out, "try: %s\n", hint)
		return nil
	case "/score":
		sc := s.Score()
		fmt.Fprintf(out, "%s\nwords: %d (you %d, machine %d)\n", s.Summary(), sc.Total, sc.Human, sc.Machine)
		return nil
	case "/rules":
		fmt.Fprintf(out, "%s\n", v.Rules)
		return nil
	case "/stop":
		a.Engine.Stop(s)
		return nil
	case "/skip":
		res, err = a.Engine.Skip(ctx, s)
	default:
		if strings.HasPrefix(line, "/") {
			fmt.Fprintf(out, "unknown command %s\n", line)
			return nil
		}
		res, err = a.Engine.Play(ctx, s, line)
	}

	var me *game.MoveError
	switch {
	case errors.As(err, &me):
		fmt.Fprintf(out, "rejected: %v\n", err)
		return nil
	case err != nil:
		log.Error().Err(err).Msg("move failed")
		return err
	}
	if res.Machine != nil {
		fmt.Fprintf(out, "machine: %s\n", res.Machine)
	}
	return nil
}

func prompt(out io.Writer, s *game.Session) {
	fmt.Fprintf(out, "your turn: %s\n> ", s.Constraints.Describe())
}

func outcomeLine(s *game.Session) string {
	switch s.Outcome {
	case game.OutcomeHumanWon:
		return "The machine is stumped. You win!"
	case game.OutcomeMaxLength:
		return "Top of the ladder. You win!"
	case game.OutcomeAbandoned:
		return "Nobody could find a word. Game over."
	default:
		return "Game stopped."
	}
}
