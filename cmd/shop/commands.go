package main

import (
	"bufio"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/ashendes/pickle-storefront/internal/checkout"
	"github.com/ashendes/pickle-storefront/internal/models"
	"github.com/ashendes/pickle-storefront/internal/payment"
	"github.com/ashendes/pickle-storefront/internal/pricing"
)

// maxLineQuantity is the most units of one product and size the CLI lets a
// shopper put in the cart
const maxLineQuantity = 99

var productsCmd = &cobra.Command{
	Use:   "products [product-id]",
	Short: "List the catalog, or show one product",
	Args:  argsBetween(0, 1),
	RunE: withShop(func(cmd *cobra.Command, s *shop, args []string) error {
		out := cmd.OutOrStdout()
		if len(args) == 1 {
			p, err := s.remote.GetProduct(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			printProduct(out, p)
			return nil
		}

		products, err := s.remote.GetProducts(cmd.Context())
		if err != nil {
			return err
		}
		for _, p := range products {
			fmt.Fprintf(out, "%-10s %s (%s)\n", p.ID, p.Name, p.SubName)
			for _, size := range p.Sizes {
				fmt.Fprintf(out, "           %-6s ₹%s\n", size.Label, pricing.FormatFloat(size.Price))
			}
		}
		return nil
	}),
}

var cartCmd = &cobra.Command{
	Use:   "cart",
	Short: "Show or change your cart",
	Args:  argsBetween(0, 0),
	RunE: withShop(func(cmd *cobra.Command, s *shop, args []string) error {
		printCart(cmd.OutOrStdout(), s.session.Items())
		return nil
	}),
}

var cartAddCmd = &cobra.Command{
	Use:   "add <product-id> <size> [quantity]",
	Short: "Add a product to your cart",
	Args:  argsBetween(2, 3),
	RunE: withShop(func(cmd *cobra.Command, s *shop, args []string) error {
		qty := 1
		if len(args) == 3 {
			n, err := parseQuantity(args[2])
			if err != nil {
				return err
			}
			qty = n
		}

		p, err := s.remote.GetProduct(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		if !p.InStock {
			return userErrorf("%s is out of stock.", p.Name)
		}
		item, ok := p.LineItem(args[1], qty)
		if !ok {
			return userErrorf("%s comes in %s.", p.Name, strings.Join(sizeLabels(p), ", "))
		}
		if lineQuantity(s.session.Items(), item.ProductID, item.Size)+qty > maxLineQuantity {
			return userErrorf("You can have at most %d of one item in your cart.", maxLineQuantity)
		}

		s.session.AddToCart(item)
		fmt.Fprintf(cmd.OutOrStdout(), "Added %d × %s (%s) to your cart.\n", qty, item.Name, item.Size)
		return nil
	}),
}

var cartUpdateCmd = &cobra.Command{
	Use:   "update <product-id> <size> <quantity>",
	Short: "Change the quantity of a cart line; 0 removes it",
	Args:  argsBetween(3, 3),
	RunE: withShop(func(cmd *cobra.Command, s *shop, args []string) error {
		qty, err := strconv.Atoi(args[2])
		if err != nil {
			return userErrorf("Quantity must be a number.")
		}
		if qty > maxLineQuantity {
			return userErrorf("You can have at most %d of one item in your cart.", maxLineQuantity)
		}
		if !inCart(s.session.Items(), args[0], args[1]) {
			return userErrorf("That item is not in your cart.")
		}
		s.session.UpdateQuantity(args[0], args[1], qty)
		printCart(cmd.OutOrStdout(), s.session.Items())
		return nil
	}),
}

var cartRemoveCmd = &cobra.Command{
	Use:   "remove <product-id> <size>",
	Short: "Remove a line from your cart",
	Args:  argsBetween(2, 2),
	RunE: withShop(func(cmd *cobra.Command, s *shop, args []string) error {
		if !inCart(s.session.Items(), args[0], args[1]) {
			return userErrorf("That item is not in your cart.")
		}
		s.session.RemoveFromCart(args[0], args[1])
		printCart(cmd.OutOrStdout(), s.session.Items())
		return nil
	}),
}

var cartClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Empty your cart",
	Args:  argsBetween(0, 0),
	RunE: withShop(func(cmd *cobra.Command, s *shop, args []string) error {
		s.session.ClearCart()
		fmt.Fprintln(cmd.OutOrStdout(), "Your cart is empty.")
		return nil
	}),
}

var signUpCmd = &cobra.Command{
	Use:   "signup <email> <password> <display-name>",
	Short: "Create an account",
	Args:  argsBetween(3, 3),
	RunE: withShop(func(cmd *cobra.Command, s *shop, args []string) error {
		resp, err := s.tracker.SignUp(cmd.Context(), args[0], args[1], args[2])
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		fmt.Fprintln(out, "Account created. Verify your email before signing in:")
		fmt.Fprintf(out, "  shop verify %s\n", resp.VerificationCode)
		return nil
	}),
}

var verifyCmd = &cobra.Command{
	Use:   "verify <code>",
	Short: "Verify your email address",
	Args:  argsBetween(1, 1),
	RunE: withShop(func(cmd *cobra.Command, s *shop, args []string) error {
		if err := s.tracker.VerifyEmail(cmd.Context(), args[0]); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), "Email verified. You can sign in now.")
		return nil
	}),
}

var signInCmd = &cobra.Command{
	Use:   "signin <email> <password>",
	Short: "Sign in; your account cart replaces the guest cart",
	Args:  argsBetween(2, 2),
	RunE: withShop(func(cmd *cobra.Command, s *shop, args []string) error {
		ctx := cmd.Context()
		if err := s.session.Sync(ctx); err != nil {
			return err
		}
		id, err := s.tracker.SignIn(ctx, args[0], args[1])
		if err != nil {
			return err
		}
		if err := s.session.AwaitLoaded(ctx); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Welcome back, %s! You have %d item(s) in your cart.\n",
			displayName(id), s.session.TotalItems())
		return nil
	}),
}

var signOutCmd = &cobra.Command{
	Use:   "signout",
	Short: "Sign out; the device's guest cart comes back",
	Args:  argsBetween(0, 0),
	RunE: withShop(func(cmd *cobra.Command, s *shop, args []string) error {
		ctx := cmd.Context()
		if s.tracker.Current().IsGuest() {
			fmt.Fprintln(cmd.OutOrStdout(), "You are not signed in.")
			return nil
		}
		// account writes still need the token
		if err := s.session.Sync(ctx); err != nil {
			return err
		}
		if err := s.tracker.SignOut(ctx); err != nil {
			return err
		}
		if err := s.session.AwaitLoaded(ctx); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), "Signed out.")
		return nil
	}),
}

var whoamiCmd = &cobra.Command{
	Use:   "whoami",
	Short: "Show who is signed in",
	Args:  argsBetween(0, 0),
	RunE: withShop(func(cmd *cobra.Command, s *shop, args []string) error {
		id := s.tracker.Current()
		if id.IsGuest() {
			fmt.Fprintln(cmd.OutOrStdout(), "Shopping as a guest.")
			return nil
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Signed in as %s <%s>.\n", displayName(id), id.Email)
		return nil
	}),
}

var checkoutFlags struct {
	name, phone, street, city, state, pincode string

	method                 string
	card, expiry, cvv, upi string
	simulate               bool
}

var checkoutCmd = &cobra.Command{
	Use:   "checkout",
	Short: "Place an order for everything in your cart",
	Args:  argsBetween(0, 0),
	RunE: withShop(func(cmd *cobra.Command, s *shop, args []string) error {
		f := checkoutFlags
		req := checkout.Request{
			Address: models.Address{
				Name:    f.name,
				Phone:   f.phone,
				Street:  f.street,
				City:    f.city,
				State:   f.state,
				Pincode: f.pincode,
			},
			PaymentMethod: f.method,
			Payment: models.PaymentDetails{
				CardNumber: f.card,
				CardExpiry: f.expiry,
				CardCVV:    f.cvv,
				UPIID:      f.upi,
			},
		}

		var authorizer payment.Authorizer = payment.Simulated{Delay: 2 * time.Second}
		if !f.simulate {
			authorizer = payment.NewGatewayClient(s.cfg.Shop.PaymentURL, s.cfg.Shop.Breaker)
		}

		out := cmd.OutOrStdout()
		fmt.Fprintln(out, "Placing your order...")
		receipt, err := checkout.NewService(s.session, s.remote, authorizer).PlaceOrder(cmd.Context(), req)
		if err != nil {
			return err
		}

		fmt.Fprintf(out, "Order placed! Your order ID is %s.\n", receipt.OrderID)
		fmt.Fprintf(out, "Total paid: ₹%s\n", pricing.FormatFloat(receipt.Total))
		return nil
	}),
}

var ordersCmd = &cobra.Command{
	Use:   "orders",
	Short: "List your orders, newest first",
	Args:  argsBetween(0, 0),
	RunE: withShop(func(cmd *cobra.Command, s *shop, args []string) error {
		id := s.tracker.Current()
		if id.IsGuest() {
			return userErrorf("Please sign in to see your orders.")
		}
		orders, err := s.remote.GetOrdersByUser(cmd.Context(), id.UserID)
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		if len(orders) == 0 {
			fmt.Fprintln(out, "You have no orders yet.")
			return nil
		}
		for _, o := range orders {
			fmt.Fprintf(out, "%s  %s  %-10s ₹%s\n",
				o.OrderID, o.CreatedAt.Local().Format("02 Jan 2006"), o.Status, pricing.FormatFloat(o.Total))
			for _, item := range o.Items {
				fmt.Fprintf(out, "    %d × %s (%s)\n", item.Quantity, item.Name, item.Size)
			}
		}
		return nil
	}),
}

var chatCmd = &cobra.Command{
	Use:   "chat [message]",
	Short: "Ask the pickle assistant; without a message, start a conversation",
	RunE: withShop(func(cmd *cobra.Command, s *shop, args []string) error {
		out := cmd.OutOrStdout()
		if len(args) > 0 {
			resp, err := s.remote.Chat(cmd.Context(), models.ChatRequest{Message: strings.Join(args, " ")})
			if err != nil {
				return err
			}
			fmt.Fprintln(out, resp.Response)
			return nil
		}

		var history []models.ChatMessage
		in := bufio.NewScanner(cmd.InOrStdin())
		fmt.Fprint(out, "> ")
		for in.Scan() {
			msg := strings.TrimSpace(in.Text())
			if msg == "" {
				fmt.Fprint(out, "> ")
				continue
			}
			resp, err := s.remote.Chat(cmd.Context(), models.ChatRequest{Message: msg, ConversationHistory: history})
			if err != nil {
				return err
			}
			fmt.Fprintln(out, resp.Response)
			history = append(history,
				models.ChatMessage{Role: "user", Content: msg},
				models.ChatMessage{Role: "assistant", Content: resp.Response})
			fmt.Fprint(out, "> ")
		}
		return in.Err()
	}),
}

func init() {
	cartCmd.AddCommand(cartAddCmd, cartUpdateCmd, cartRemoveCmd, cartClearCmd)

	f := checkoutCmd.Flags()
	f.StringVar(&checkoutFlags.name, "name", "", "recipient name")
	f.StringVar(&checkoutFlags.phone, "phone", "", "10-digit phone number")
	f.StringVar(&checkoutFlags.street, "street", "", "street address")
	f.StringVar(&checkoutFlags.city, "city", "", "city")
	f.StringVar(&checkoutFlags.state, "state", "", "state")
	f.StringVar(&checkoutFlags.pincode, "pincode", "", "6-digit pincode")
	f.StringVar(&checkoutFlags.method, "pay", models.PaymentMethodCOD, "payment method: cod, card or upi")
	f.StringVar(&checkoutFlags.card, "card", "", "card number")
	f.StringVar(&checkoutFlags.expiry, "expiry", "", "card expiry (MM/YY)")
	f.StringVar(&checkoutFlags.cvv, "cvv", "", "card CVV")
	f.StringVar(&checkoutFlags.upi, "upi", "", "UPI ID")
	f.BoolVar(&checkoutFlags.simulate, "simulate", false, "authorize payment locally instead of calling the payment service")

	rootCmd.AddCommand(
		productsCmd,
		cartCmd,
		signUpCmd,
		verifyCmd,
		signInCmd,
		signOutCmd,
		whoamiCmd,
		checkoutCmd,
		ordersCmd,
		chatCmd,
	)
}

func printProduct(out io.Writer, p *models.Product) {
	fmt.Fprintf(out, "%s (%s)\n", p.Name, p.SubName)
	fmt.Fprintln(out, p.Description)
	if p.LongDescription != "" {
		fmt.Fprintf(out, "\n%s\n", p.LongDescription)
	}
	fmt.Fprintln(out)
	for _, size := range p.Sizes {
		fmt.Fprintf(out, "  %-6s ₹%s\n", size.Label, pricing.FormatFloat(size.Price))
	}
	if !p.InStock {
		fmt.Fprintln(out, "  Currently out of stock")
	}
	if len(p.Ingredients) > 0 {
		fmt.Fprintf(out, "\nIngredients: %s\n", strings.Join(p.Ingredients, ", "))
	}
	if d := p.Display; d != nil && d.BuyNow != nil {
		fmt.Fprintf(out, "%s %s\n", d.BuyNow.DeliveryPromise, d.BuyNow.ReturnPolicy)
	}
}

func printCart(out io.Writer, items []models.LineItem) {
	if len(items) == 0 {
		fmt.Fprintln(out, "Your cart is empty.")
		return
	}
	for _, item := range items {
		fmt.Fprintf(out, "%-10s %-6s %3d × ₹%-8s %s\n",
			item.ProductID, item.Size, item.Quantity, pricing.FormatFloat(item.Price), item.Name)
	}

	b := pricing.Calculate(items).Display()
	fmt.Fprintf(out, "\nSubtotal  ₹%s\nTax (5%%)  ₹%s\n", b["subtotal"], b["tax"])
	if b["shipping"] == "0.00" {
		fmt.Fprintln(out, "Shipping  FREE")
	} else {
		fmt.Fprintf(out, "Shipping  ₹%s\n", b["shipping"])
	}
	fmt.Fprintf(out, "Total     ₹%s\n", b["total"])
}

func parseQuantity(s string) (int, error) {
	n, err := strconv.Atoi(s)
	if err != nil || n <= 0 {
		return 0, userErrorf("Quantity must be a positive number.")
	}
	return n, nil
}

func lineQuantity(items []models.LineItem, productID, size string) int {
	for _, item := range items {
		if item.SameLine(productID, size) {
			return item.Quantity
		}
	}
	return 0
}

func inCart(items []models.LineItem, productID, size string) bool {
	for _, item := range items {
		if item.SameLine(productID, size) {
			return true
		}
	}
	return false
}

func sizeLabels(p *models.Product) []string {
	labels := make([]string, 0, len(p.Sizes))
	for _, s := range p.Sizes {
		labels = append(labels, s.Label)
	}
	return labels
}

func displayName(id models.Identity) string {
	if id.DisplayName != "" {
		return id.DisplayName
	}
	return id.Email
}

func joinFields(fields map[string]string) string {
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	lines := make([]string, 0, len(keys))
	for _, k := range keys {
		lines = append(lines, k+" "+fields[k])
	}
	return strings.Join(lines, "\n  ")
}
