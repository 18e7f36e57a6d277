package main

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"unigame/internal/model"
	"unigame/internal/notify"
	"unigame/internal/orchestrator"
	"unigame/internal/units"
)

func newBetsCmd() *cobra.Command {
	cmd := &cobra.Command{Use: "bets", Short: "On-chain bets"}

	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List all bets",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runList(cmd, model.ResourceBets, func(a *app) pterm.TableData {
				data := pterm.TableData{{"ID", "Description", "Amount", "State", "Creator", "Deadline"}}
				for _, bet := range a.store.Bets() {
					data = append(data, []string{
						strconv.FormatUint(bet.ID, 10),
						bet.Description,
						units.FormatUnits(bet.Amount, 4),
						bet.State.String(),
						bet.Creator.Hex(),
						time.Unix(bet.Deadline, 0).Format(time.RFC3339),
					})
				}
				return data
			})
		},
	})

	createCmd := &cobra.Command{
		Use:   "create",
		Short: "Create a bet",
		RunE: func(cmd *cobra.Command, _ []string) error {
			description, _ := cmd.Flags().GetString("description")
			amount, _ := cmd.Flags().GetString("amount")
			deadlineDays, _ := cmd.Flags().GetUint64("deadline-days")
			return runMutation(cmd, func(ctx context.Context, a *app) error {
				return a.orch.CreateBet(ctx, orchestrator.CreateBetInput{
					Description:  description,
					Amount:       amount,
					DeadlineDays: deadlineDays,
				})
			})
		},
	}
	createCmd.Flags().String("description", "", "what the bet is about")
	createCmd.Flags().String("amount", "", "wager in whole-token units, e.g. 0.1")
	createCmd.Flags().Uint64("deadline-days", 0, "days until the bet expires, 0 uses the default")
	cmd.AddCommand(createCmd)

	acceptCmd := &cobra.Command{
		Use:   "accept <id>",
		Short: "Accept an open bet",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			amount, _ := cmd.Flags().GetString("amount")
			return runMutation(cmd, func(ctx context.Context, a *app) error {
				return a.orch.AcceptBet(ctx, orchestrator.AcceptBetInput{BetID: id, Amount: amount})
			})
		},
	}
	acceptCmd.Flags().String("amount", "", "counter-wager in whole-token units")
	cmd.AddCommand(acceptCmd)

	resolveCmd := &cobra.Command{
		Use:   "resolve <id>",
		Short: "Resolve a matched bet",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			winner, _ := cmd.Flags().GetString("winner")
			return runMutation(cmd, func(ctx context.Context, a *app) error {
				return a.orch.ResolveBet(ctx, orchestrator.ResolveBetInput{BetID: id, Winner: winner})
			})
		},
	}
	resolveCmd.Flags().String("winner", "", "winning account address")
	cmd.AddCommand(resolveCmd)

	return cmd
}

func newPollsCmd() *cobra.Command {
	cmd := &cobra.Command{Use: "polls", Short: "On-chain polls"}

	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List all polls",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runList(cmd, model.ResourcePolls, func(a *app) pterm.TableData {
				data := pterm.TableData{{"ID", "Question", "Votes", "Leading", "Active", "Ends"}}
				for _, poll := range a.store.Polls() {
					leading := ""
					best := -1.0
					for i, opt := range poll.Options {
						if pct := poll.VotePercentage(i); pct > best {
							best = pct
							leading = fmt.Sprintf("%s (%.1f%%)", opt.Text, pct)
						}
					}
					data = append(data, []string{
						strconv.FormatUint(poll.ID, 10),
						poll.Question,
						poll.TotalVotes().String(),
						leading,
						strconv.FormatBool(poll.Active),
						time.Unix(poll.EndTime, 0).Format(time.RFC3339),
					})
				}
				return data
			})
		},
	})

	createCmd := &cobra.Command{
		Use:   "create",
		Short: "Create a poll",
		RunE: func(cmd *cobra.Command, _ []string) error {
			question, _ := cmd.Flags().GetString("question")
			options, _ := cmd.Flags().GetStringSlice("option")
			durationDays, _ := cmd.Flags().GetUint64("duration-days")
			return runMutation(cmd, func(ctx context.Context, a *app) error {
				return a.orch.CreatePoll(ctx, orchestrator.CreatePollInput{
					Question:     question,
					Options:      options,
					DurationDays: durationDays,
				})
			})
		},
	}
	createCmd.Flags().String("question", "", "poll question")
	createCmd.Flags().StringSlice("option", nil, "poll option, repeatable")
	createCmd.Flags().Uint64("duration-days", 0, "days the poll stays open")
	cmd.AddCommand(createCmd)

	voteCmd := &cobra.Command{
		Use:   "vote <id>",
		Short: "Vote in a poll",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			option, _ := cmd.Flags().GetUint64("option")
			return runMutation(cmd, func(ctx context.Context, a *app) error {
				return a.orch.Vote(ctx, orchestrator.VoteInput{PollID: id, OptionIndex: option})
			})
		},
	}
	voteCmd.Flags().Uint64("option", 0, "option index to vote for")
	cmd.AddCommand(voteCmd)

	return cmd
}

func newRafflesCmd() *cobra.Command {
	cmd := &cobra.Command{Use: "raffles", Short: "On-chain raffles"}

	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List all raffles",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runList(cmd, model.ResourceRaffles, func(a *app) pterm.TableData {
				data := pterm.TableData{{"ID", "Ticket", "Pool", "Sold", "Active", "Winner", "Ends"}}
				for _, raffle := range a.store.Raffles() {
					winner := ""
					if raffle.HasWinner() {
						winner = raffle.Winner.Hex()
					}
					data = append(data, []string{
						strconv.FormatUint(raffle.ID, 10),
						units.FormatUnits(raffle.TicketPrice, 4),
						units.FormatUnits(raffle.TotalPool, 4),
						strconv.FormatUint(raffle.TicketsSold(), 10),
						strconv.FormatBool(raffle.Active),
						winner,
						time.Unix(raffle.EndTime, 0).Format(time.RFC3339),
					})
				}
				return data
			})
		},
	})

	createCmd := &cobra.Command{
		Use:   "create",
		Short: "Create a raffle",
		RunE: func(cmd *cobra.Command, _ []string) error {
			price, _ := cmd.Flags().GetString("price")
			durationDays, _ := cmd.Flags().GetUint64("duration-days")
			return runMutation(cmd, func(ctx context.Context, a *app) error {
				return a.orch.CreateRaffle(ctx, orchestrator.CreateRaffleInput{
					TicketPrice:  price,
					DurationDays: durationDays,
				})
			})
		},
	}
	createCmd.Flags().String("price", "", "ticket price in whole-token units")
	createCmd.Flags().Uint64("duration-days", 0, "days the raffle stays open")
	cmd.AddCommand(createCmd)

	buyCmd := &cobra.Command{
		Use:   "buy <id>",
		Short: "Buy raffle tickets",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			count, _ := cmd.Flags().GetUint64("count")
			return runMutation(cmd, func(ctx context.Context, a *app) error {
				return a.orch.BuyTickets(ctx, orchestrator.BuyTicketsInput{RaffleID: id, Count: count})
			})
		},
	}
	buyCmd.Flags().Uint64("count", 1, "number of tickets")
	cmd.AddCommand(buyCmd)

	return cmd
}

func newStakesCmd() *cobra.Command {
	cmd := &cobra.Command{Use: "stakes", Short: "On-chain stake pools"}

	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List all stake pools",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runList(cmd, model.ResourceStakes, func(a *app) pterm.TableData {
				data := pterm.TableData{{"ID", "Name", "APY", "Staked", "Capacity", "Active", "Yours", "Unlocks"}}
				for _, pool := range a.store.StakePools() {
					yours, unlocks := "", ""
					if pool.UserStake != nil && pool.UserStake.Active {
						yours = units.FormatUnits(pool.UserStake.Amount, 4)
						unlocks = time.Unix(pool.UserStake.WithdrawableAt(pool.Duration), 0).UTC().Format("2006-01-02 15:04")
					}
					data = append(data, []string{
						strconv.FormatUint(pool.ID, 10),
						pool.Name,
						fmt.Sprintf("%.2f%%", float64(pool.APY)/100),
						units.FormatUnits(pool.TotalStaked, 4),
						units.FormatUnits(pool.MaxStake, 4),
						strconv.FormatBool(pool.Active),
						yours,
						unlocks,
					})
				}
				return data
			})
		},
	})

	createCmd := &cobra.Command{
		Use:   "create",
		Short: "Create a stake pool",
		RunE: func(cmd *cobra.Command, _ []string) error {
			name, _ := cmd.Flags().GetString("name")
			maxStake, _ := cmd.Flags().GetString("max-stake")
			apy, _ := cmd.Flags().GetFloat64("apy")
			durationDays, _ := cmd.Flags().GetUint64("duration-days")
			return runMutation(cmd, func(ctx context.Context, a *app) error {
				return a.orch.CreateStakePool(ctx, orchestrator.CreateStakePoolInput{
					Name:         name,
					MaxStake:     maxStake,
					APYPercent:   apy,
					DurationDays: durationDays,
				})
			})
		},
	}
	createCmd.Flags().String("name", "", "pool name")
	createCmd.Flags().String("max-stake", "", "pool capacity in whole-token units")
	createCmd.Flags().Float64("apy", 0, "annual yield percent, e.g. 12.5")
	createCmd.Flags().Uint64("duration-days", 0, "lock duration in days")
	cmd.AddCommand(createCmd)

	stakeCmd := &cobra.Command{
		Use:   "stake <id>",
		Short: "Stake into a pool",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			amount, _ := cmd.Flags().GetString("amount")
			return runMutation(cmd, func(ctx context.Context, a *app) error {
				return a.orch.Stake(ctx, orchestrator.StakeInput{PoolID: id, Amount: amount})
			})
		},
	}
	stakeCmd.Flags().String("amount", "", "stake in whole-token units")
	cmd.AddCommand(stakeCmd)

	cmd.AddCommand(&cobra.Command{
		Use:   "unstake <id>",
		Short: "Withdraw a stake after the lock period",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			return runMutation(cmd, func(ctx context.Context, a *app) error {
				return a.orch.Unstake(ctx, orchestrator.UnstakeInput{PoolID: id})
			})
		},
	})

	return cmd
}

func runList(cmd *cobra.Command, resource model.Resource, render func(a *app) pterm.TableData) error {
	ctx := cmd.Context()
	a, cleanup, err := newApp(ctx, cmd, false)
	if err != nil {
		return err
	}
	defer cleanup()

	if err := a.refresher.Refresh(ctx, resource); err != nil {
		return err
	}

	return pterm.DefaultTable.WithHasHeader().WithData(render(a)).Render()
}

func runMutation(cmd *cobra.Command, fn func(ctx context.Context, a *app) error) error {
	a, cleanup, err := newApp(cmd.Context(), cmd, true)
	if err != nil {
		return err
	}
	defer cleanup()

	subID, messages := a.hub.Subscribe()
	defer a.hub.Unsubscribe(subID)

	ctx, cancel := context.WithTimeout(cmd.Context(), a.cfg.ConfirmTimeout)
	defer cancel()

	mutationErr := fn(ctx, a)
	drainNotifications(messages)
	return mutationErr
}

// drainNotifications prints whatever the hub published during the
// mutation without blocking on an empty channel.
func drainNotifications(messages <-chan notify.Notification) {
	for {
		select {
		case n, ok := <-messages:
			if !ok {
				return
			}
			switch n.Level {
			case notify.LevelError:
				pterm.Error.Println(n.Message)
			case notify.LevelSuccess:
				pterm.Success.Println(n.Message)
			default:
				pterm.Info.Println(n.Message)
			}
		default:
			return
		}
	}
}

func parseID(raw string) (uint64, error) {
	id, err := strconv.ParseUint(raw, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid id %q", raw)
	}
	return id, nil
}
