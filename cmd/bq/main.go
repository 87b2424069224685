package main

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	cl "bitquest/internal/cli"
	"bitquest/internal/config"

	"github.com/spf13/cobra"
)

func main() {
	cfg := config.LoadCLIFromEnv()
	apiBase := cfg.APIBaseURL

	root := &cobra.Command{
		Use:          "bq",
		Short:        "bitquest CLI game client",
		SilenceUsage: true,
	}

	root.AddCommand(
		newSignupCmd(&apiBase),
		newLoginCmd(&apiBase),
		newLogoutCmd(&apiBase),
		newDashCmd(&apiBase),
		newMarketCmd(&apiBase),
		newTradeCmd(&apiBase, "buy"),
		newTradeCmd(&apiBase, "sell"),
		newShopCmd(&apiBase),
		newUseCmd(&apiBase),
		newGatesCmd(&apiBase),
		newSortCmd(&apiBase),
		newHexCmd(&apiBase),
		newMallocCmd(&apiBase),
	)

	if err := root.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func newClient(apiBase *string) *cl.Client {
	return cl.NewClient(strings.TrimRight(strings.TrimSpace(*apiBase), "/"))
}

func requireSession() (cl.Session, error) {
	sess, err := cl.LoadSession()
	if err != nil {
		return cl.Session{}, fmt.Errorf("login required: %w", err)
	}
	return sess, nil
}

func newSignupCmd(apiBase *string) *cobra.Command {
	return &cobra.Command{
		Use:   "signup",
		Short: "Create a bitquest account",
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := promptRequired("User id")
			if err != nil {
				return err
			}
			password, err := promptPassword("Password")
			if err != nil {
				return err
			}
			name, err := promptOptional("Display name (optional)")
			if err != nil {
				return err
			}

			ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
			defer cancel()
			out, err := newClient(apiBase).Signup(ctx, id, password, name)
			if err != nil {
				return err
			}
			if err := cl.SaveSession(cl.Session{Token: out.Token, UserID: out.ID}); err != nil {
				return err
			}
			printSuccess("Signup complete. Session saved.")
			return nil
		},
	}
}

func newLoginCmd(apiBase *string) *cobra.Command {
	return &cobra.Command{
		Use:   "login",
		Short: "Login to bitquest",
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := promptRequired("User id")
			if err != nil {
				return err
			}
			password, err := promptPassword("Password")
			if err != nil {
				return err
			}
			ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
			defer cancel()
			out, err := newClient(apiBase).Login(ctx, id, password)
			if err != nil {
				return err
			}
			if err := cl.SaveSession(cl.Session{Token: out.Token, UserID: out.ID}); err != nil {
				return err
			}
			printSuccess("Login successful.")
			return nil
		},
	}
}

func newLogoutCmd(apiBase *string) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Revoke the server session and clear the local token",
		RunE: func(cmd *cobra.Command, args []string) error {
			if sess, err := cl.LoadSession(); err == nil {
				ctx, cancel := context.WithTimeout(cmd.Context(), 10*time.Second)
				defer cancel()
				_ = newClient(apiBase).Logout(ctx, sess.Token)
			}
			if err := cl.ClearSession(); err != nil {
				return err
			}
			printSuccess("Logged out.")
			return nil
		},
	}
}

func newDashCmd(apiBase *string) *cobra.Command {
	return &cobra.Command{
		Use:   "dash",
		Short: "Show your dashboard",
		RunE: func(cmd *cobra.Command, args []string) error {
			sess, err := requireSession()
			if err != nil {
				return err
			}
			ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
			defer cancel()
			out, err := newClient(apiBase).Dashboard(ctx, sess.Token)
			if err != nil {
				return err
			}
			renderDashboard(out)
			return nil
		},
	}
}

func newMarketCmd(apiBase *string) *cobra.Command {
	var showHistory bool
	cmd := &cobra.Command{
		Use:   "market",
		Short: "Show current prices",
		RunE: func(cmd *cobra.Command, args []string) error {
			sess, err := requireSession()
			if err != nil {
				return err
			}
			ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
			defer cancel()
			client := newClient(apiBase)
			if showHistory {
				out, err := client.MarketHistory(ctx, sess.Token)
				if err != nil {
					return err
				}
				renderHistory(out)
				return nil
			}
			out, err := client.Market(ctx, sess.Token)
			if err != nil {
				return err
			}
			renderMarket(out)
			return nil
		},
	}
	cmd.Flags().BoolVar(&showHistory, "history", false, "show the snapshot history instead of current prices")
	return cmd
}

func newTradeCmd(apiBase *string, side string) *cobra.Command {
	return &cobra.Command{
		Use:   side + " <code> <quantity>",
		Short: side + " shares at the current market price",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			sess, err := requireSession()
			if err != nil {
				return err
			}
			qty, err := strconv.ParseInt(args[1], 10, 64)
			if err != nil {
				return fmt.Errorf("quantity must be an integer: %w", err)
			}
			ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
			defer cancel()
			out, err := newClient(apiBase).Trade(ctx, sess.Token, side, strings.ToUpper(args[0]), qty)
			if err != nil {
				return err
			}
			printSuccess(fmt.Sprintf("Filled %s %s x%d at %v", side, strings.ToUpper(args[0]), qty, out["price"]))
			renderUser(out["user"])
			return nil
		},
	}
}

func newShopCmd(apiBase *string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "shop [item]",
		Short: "List the shop, or buy an item",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			sess, err := requireSession()
			if err != nil {
				return err
			}
			ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
			defer cancel()
			client := newClient(apiBase)
			if len(args) == 0 {
				out, err := client.Shop(ctx, sess.Token)
				if err != nil {
					return err
				}
				renderShop(out)
				return nil
			}
			out, err := client.ShopBuy(ctx, sess.Token, args[0])
			if err != nil {
				return err
			}
			printSuccess("Bought " + args[0])
			renderUser(out["user"])
			return nil
		},
	}
	return cmd
}

func newUseCmd(apiBase *string) *cobra.Command {
	return &cobra.Command{
		Use:   "use <item>",
		Short: "Use an item from your inventory",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			sess, err := requireSession()
			if err != nil {
				return err
			}
			ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
			defer cancel()
			out, err := newClient(apiBase).ItemUse(ctx, sess.Token, args[0])
			if err != nil {
				return err
			}
			renderOutcome(out["outcome"])
			renderUser(out["user"])
			return nil
		},
	}
}

func newGatesCmd(apiBase *string) *cobra.Command {
	return &cobra.Command{
		Use:   "gates",
		Short: "Play the logic-gate quiz",
		RunE: func(cmd *cobra.Command, args []string) error {
			sess, err := requireSession()
			if err != nil {
				return err
			}
			ctx, cancel := context.WithTimeout(cmd.Context(), 60*time.Second)
			defer cancel()
			client := newClient(apiBase)

			challenge, err := client.GateNew(ctx, sess.Token)
			if err != nil {
				return err
			}
			gate, _ := challenge["gate"].(string)
			a, _ := challenge["a"].(bool)
			b, _ := challenge["b"].(bool)
			if gate == "NOT" {
				printInfo(fmt.Sprintf("NOT %v = ?", boolBit(a)))
			} else {
				printInfo(fmt.Sprintf("%v %s %v = ?", boolBit(a), gate, boolBit(b)))
			}
			answer, err := promptRequired("Answer (0/1)")
			if err != nil {
				return err
			}
			out, err := client.GateAnswer(ctx, sess.Token, challenge, answer == "1")
			if err != nil {
				return err
			}
			renderOutcome(out["outcome"])
			renderUser(out["user"])
			return nil
		},
	}
}

func newSortCmd(apiBase *string) *cobra.Command {
	var size int
	cmd := &cobra.Command{
		Use:   "sort",
		Short: "Fight a bug with selection sort",
		RunE: func(cmd *cobra.Command, args []string) error {
			sess, err := requireSession()
			if err != nil {
				return err
			}
			ctx, cancel := context.WithTimeout(cmd.Context(), 5*time.Minute)
			defer cancel()
			client := newClient(apiBase)

			battle, err := client.SortNew(ctx, sess.Token, size)
			if err != nil {
				return err
			}
			values := intSlice(battle["values"])
			if len(values) == 0 {
				return fmt.Errorf("server returned an empty battle")
			}

			var strikes []int
			printInfo("Pick the index selection sort swaps next. One wrong pick per round is forgiven, not free.")
			for cursor := 0; cursor < len(values); {
				printInfo(fmt.Sprintf("heap: %v  (sorted through %d)", values, cursor))
				raw, err := promptRequired("strike index")
				if err != nil {
					return err
				}
				idx, err := strconv.Atoi(raw)
				if err != nil || idx < 0 || idx >= len(values) {
					printWarn("index out of range")
					continue
				}
				strikes = append(strikes, idx)
				// Mirror the server's rule locally to keep the prompt honest.
				min := cursor
				for i := cursor + 1; i < len(values); i++ {
					if values[i] < values[min] {
						min = i
					}
				}
				if idx == min {
					values[cursor], values[min] = values[min], values[cursor]
					cursor++
					printSuccess("hit!")
				} else {
					printWarn("miss")
				}
			}

			out, err := client.SortResolve(ctx, sess.Token, intSlice(battle["values"]), strikes)
			if err != nil {
				return err
			}
			renderOutcome(out["outcome"])
			renderUser(out["user"])
			return nil
		},
	}
	cmd.Flags().IntVar(&size, "size", 6, "battle size (3-16)")
	return cmd
}

func newHexCmd(apiBase *string) *cobra.Command {
	return &cobra.Command{
		Use:   "hex",
		Short: "Decode a hex payload",
		RunE: func(cmd *cobra.Command, args []string) error {
			sess, err := requireSession()
			if err != nil {
				return err
			}
			ctx, cancel := context.WithTimeout(cmd.Context(), 60*time.Second)
			defer cancel()
			client := newClient(apiBase)

			challenge, err := client.HexNew(ctx, sess.Token)
			if err != nil {
				return err
			}
			encoded, _ := challenge["encoded"].(string)
			printInfo("decode: " + encoded)
			answer, err := promptRequired("plaintext")
			if err != nil {
				return err
			}
			out, err := client.HexAnswer(ctx, sess.Token, encoded, answer)
			if err != nil {
				return err
			}
			renderOutcome(out["outcome"])
			renderUser(out["user"])
			return nil
		},
	}
}

func newMallocCmd(apiBase *string) *cobra.Command {
	var size int
	cmd := &cobra.Command{
		Use:   "malloc <op>...",
		Short: "Run the allocator sim, ops like alloc:a:16 free:a",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			sess, err := requireSession()
			if err != nil {
				return err
			}
			actions := make([]map[string]any, 0, len(args))
			for _, arg := range args {
				parts := strings.Split(arg, ":")
				switch {
				case len(parts) == 3 && parts[0] == "alloc":
					sz, err := strconv.Atoi(parts[2])
					if err != nil {
						return fmt.Errorf("bad alloc size in %q", arg)
					}
					actions = append(actions, map[string]any{"op": "alloc", "id": parts[1], "size": sz})
				case len(parts) == 2 && parts[0] == "free":
					actions = append(actions, map[string]any{"op": "free", "id": parts[1]})
				default:
					return fmt.Errorf("unrecognized op %q", arg)
				}
			}
			ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
			defer cancel()
			out, err := newClient(apiBase).Malloc(ctx, sess.Token, size, actions)
			if err != nil {
				return err
			}
			renderOutcome(out["outcome"])
			renderUser(out["user"])
			return nil
		},
	}
	cmd.Flags().IntVar(&size, "size", 64, "heap size in bytes")
	return cmd
}
