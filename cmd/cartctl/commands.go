package main

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"
	"go.uber.org/multierr"

	"github.com/flintflours/storefront-backend/internal/cartsync"
	"github.com/flintflours/storefront-backend/pkg/auth"
	"github.com/flintflours/storefront-backend/pkg/config"
)

func newRootCmd(loadConfig func() (*config.ClientConfig, error), out, logOut io.Writer) *cobra.Command {
	var (
		sess  *session
		stats bool
	)

	root := &cobra.Command{
		Use:           "cartctl",
		Short:         "Shop the Flint Flours storefront from a terminal",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			sess, err = openSession(cmd.Context(), cfg, logOut)
			return err
		},
		PersistentPostRunE: func(cmd *cobra.Command, _ []string) error {
			err := sess.settle(cmd.Context())
			if stats {
				err = multierr.Append(err, printStats(out, sess.registry))
			}
			return multierr.Append(err, sess.close())
		},
	}
	root.SetOut(out)
	root.PersistentFlags().BoolVar(&stats, "stats", false, "print sync counters before exiting")

	current := func() *session { return sess }
	root.AddCommand(
		loginCmd(current, out),
		logoutCmd(current, out),
		addCmd(current, out),
		setCmd(current, out),
		removeCmd(current, out),
		showCmd(current, out),
		countCmd(current, out),
		refreshCmd(current, out),
		clearCmd(current, out),
	)
	return root
}

func loginCmd(sess func() *session, out io.Writer) *cobra.Command {
	var token string
	cmd := &cobra.Command{
		Use:   "login",
		Short: "Save an access token and merge the local cart into the account cart",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			s := sess()
			token = strings.TrimSpace(token)
			user, err := auth.PeekSubject(token)
			if err != nil {
				return err
			}
			if err := s.writeToken(token); err != nil {
				return err
			}
			if err := s.signIn(cmd.Context(), token); err != nil {
				return err
			}
			fmt.Fprintf(out, "signed in as %s, %d item(s) in cart\n", user, s.engine.TotalItemCount())
			return nil
		},
	}
	cmd.Flags().StringVar(&token, "token", "", "access token issued by the identity provider")
	_ = cmd.MarkFlagRequired("token")
	return cmd
}

func logoutCmd(sess func() *session, out io.Writer) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Forget the token and the local cart",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			s := sess()
			s.engine.SignOut(cmd.Context())
			if err := s.removeToken(); err != nil {
				return err
			}
			fmt.Fprintln(out, "signed out")
			return nil
		},
	}
}

func addCmd(sess func() *session, out io.Writer) *cobra.Command {
	var (
		display  cartsync.Display
		price    string
		discount string
	)
	cmd := &cobra.Command{
		Use:   "add PRODUCT_ID VARIANT_ID",
		Short: "Add one unit of a variant",
		Args:  cobra.ExactArgs(2),
		RunE: func(_ *cobra.Command, args []string) error {
			productID, variantID, err := parseKey(args)
			if err != nil {
				return err
			}
			if display.Price, err = parseAmount("price", price); err != nil {
				return err
			}
			if display.DiscountPercent, err = parseAmount("discount", discount); err != nil {
				return err
			}
			s := sess()
			s.engine.AddLine(productID, variantID, display)
			fmt.Fprintf(out, "%s: %d\n", lineLabel(display), s.engine.QuantityOf(productID, variantID))
			return nil
		},
	}
	cmd.Flags().StringVar(&display.ProductName, "name", "", "product name shown in the cart")
	cmd.Flags().StringVar(&display.ProductSlug, "slug", "", "product slug")
	cmd.Flags().StringVar(&display.VariantName, "variant", "", "variant name shown in the cart")
	cmd.Flags().StringVar(&display.ImageURL, "image", "", "image url")
	cmd.Flags().StringVar(&price, "price", "0", "list price per unit")
	cmd.Flags().StringVar(&discount, "discount", "0", "discount percent")
	return cmd
}

func setCmd(sess func() *session, out io.Writer) *cobra.Command {
	return &cobra.Command{
		Use:   "set PRODUCT_ID VARIANT_ID QUANTITY",
		Short: "Set the quantity of a line; zero removes it",
		Args:  cobra.ExactArgs(3),
		RunE: func(_ *cobra.Command, args []string) error {
			productID, variantID, err := parseKey(args)
			if err != nil {
				return err
			}
			qty, err := strconv.Atoi(args[2])
			if err != nil {
				return fmt.Errorf("quantity must be a number: %w", err)
			}
			s := sess()
			s.engine.SetQuantity(productID, variantID, qty)
			fmt.Fprintf(out, "quantity: %d\n", s.engine.QuantityOf(productID, variantID))
			return nil
		},
	}
}

func removeCmd(sess func() *session, out io.Writer) *cobra.Command {
	return &cobra.Command{
		Use:   "remove PRODUCT_ID VARIANT_ID",
		Short: "Remove a line",
		Args:  cobra.ExactArgs(2),
		RunE: func(_ *cobra.Command, args []string) error {
			productID, variantID, err := parseKey(args)
			if err != nil {
				return err
			}
			sess().engine.RemoveLine(productID, variantID)
			fmt.Fprintln(out, "removed")
			return nil
		},
	}
}

func showCmd(sess func() *session, out io.Writer) *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Print the cart",
		Args:  cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			return printCart(out, sess().engine.Lines())
		},
	}
}

func countCmd(sess func() *session, out io.Writer) *cobra.Command {
	return &cobra.Command{
		Use:   "count",
		Short: "Print the number of units in the cart",
		Args:  cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			fmt.Fprintln(out, sess().engine.TotalItemCount())
			return nil
		},
	}
}

func refreshCmd(sess func() *session, out io.Writer) *cobra.Command {
	return &cobra.Command{
		Use:   "refresh",
		Short: "Replace the cart with the account cart",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			s := sess()
			if s.engine.Identity() == "" {
				fmt.Fprintln(out, "not signed in, nothing to refresh")
				return nil
			}
			s.engine.Refresh(cmd.Context())
			return printCart(out, s.engine.Lines())
		},
	}
}

func clearCmd(sess func() *session, out io.Writer) *cobra.Command {
	return &cobra.Command{
		Use:   "clear",
		Short: "Empty the cart",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			sess().engine.Clear(cmd.Context())
			fmt.Fprintln(out, "cart cleared")
			return nil
		},
	}
}

func parseKey(args []string) (uuid.UUID, uuid.UUID, error) {
	productID, err := uuid.Parse(args[0])
	if err != nil {
		return uuid.Nil, uuid.Nil, fmt.Errorf("invalid product id %q", args[0])
	}
	variantID, err := uuid.Parse(args[1])
	if err != nil {
		return uuid.Nil, uuid.Nil, fmt.Errorf("invalid variant id %q", args[1])
	}
	return productID, variantID, nil
}

func parseAmount(name, raw string) (decimal.Decimal, error) {
	value, err := decimal.NewFromString(strings.TrimSpace(raw))
	if err != nil || value.IsNegative() {
		return decimal.Zero, fmt.Errorf("invalid %s %q", name, raw)
	}
	return value, nil
}
