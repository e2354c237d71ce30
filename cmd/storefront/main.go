package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"strconv"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"giftbox-shop/config"
	"giftbox-shop/models"
	"giftbox-shop/storefront/cart"
	"giftbox-shop/storefront/catalog"
	"giftbox-shop/storefront/checkout"
	"giftbox-shop/storefront/eventbus"
	"giftbox-shop/utils"
)

const usage = `usage:
  storefront catalog
  storefront cart add <productId> [-color C] [-qty N]
  storefront cart remove <productId> [-color C]
  storefront cart set <productId> <qty> [-color C]
  storefront cart list
  storefront cart clear
  storefront checkout -name NAME -phone PHONE -email EMAIL [-address A] [-comment C] [-payment cash|transfer] [-delivery delivery|pickup_moscow|pickup_ershovo]
`

type shop struct {
	cfg     *config.Config
	catalog *catalog.Catalog
	cart    *cart.Store
	out     io.Writer
}

func main() {
	if os.Getenv("ENV") != "production" {
		// Missing .env is fine for the CLI
		_ = godotenv.Overload(".env")
	}

	logger, err := zap.NewDevelopment()
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}
	defer logger.Sync()
	zap.ReplaceGlobals(logger)

	if err := run(context.Background(), os.Args[1:], os.Stdout); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string, out io.Writer) error {
	if len(args) == 0 {
		return errors.New(usage)
	}

	cfg, err := config.Load()
	if err != nil {
		return err
	}
	cat, err := catalog.Load(cfg.CatalogPath)
	if err != nil {
		return err
	}

	bus := eventbus.New()
	bus.Subscribe(cart.EventCartChanged, func(_ string, payload any) {
		lines, _ := payload.([]models.CartLine)
		zap.S().Debugf("🛒 Cart: %d line(s) saved to %s", len(lines), cfg.CartPath)
	})
	store, err := cart.NewStore(cart.NewFileStorage(cfg.CartPath), cat, bus)
	if err != nil {
		return err
	}

	s := &shop{cfg: cfg, catalog: cat, cart: store, out: out}
	switch args[0] {
	case "catalog":
		return s.listCatalog()
	case "cart":
		return s.cartCommand(args[1:])
	case "checkout":
		return s.checkout(ctx, args[1:])
	default:
		return errors.New(usage)
	}
}

func (s *shop) listCatalog() error {
	for _, p := range s.catalog.All() {
		fmt.Fprintf(s.out, "%-6s %-30s арт. %-5s %-12s %s\n", p.ID, p.Name, p.Artikul, p.Color, utils.FormatRUB(p.Price))
	}
	return nil
}

func (s *shop) cartCommand(args []string) error {
	if len(args) == 0 {
		return errors.New(usage)
	}

	fs := flag.NewFlagSet("cart "+args[0], flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	color := fs.String("color", "", "color variant")
	qty := fs.Int("qty", 1, "quantity")

	switch args[0] {
	case "list":
		return s.printCart()
	case "clear":
		if err := s.cart.Clear(); err != nil {
			return err
		}
		return s.printCart()
	case "add":
		productID, rest, err := positional(args[1:])
		if err != nil {
			return err
		}
		if err := fs.Parse(rest); err != nil {
			return err
		}
		if _, ok := s.catalog.Product(productID); !ok {
			return fmt.Errorf("unknown product %q", productID)
		}
		if err := s.cart.Add(productID, *color, *qty); err != nil {
			return err
		}
		return s.printCart()
	case "remove":
		productID, rest, err := positional(args[1:])
		if err != nil {
			return err
		}
		if err := fs.Parse(rest); err != nil {
			return err
		}
		if err := s.cart.Remove(productID, *color); err != nil {
			return err
		}
		return s.printCart()
	case "set":
		productID, rest, err := positional(args[1:])
		if err != nil {
			return err
		}
		quantityArg, rest, err := positional(rest)
		if err != nil {
			return err
		}
		quantity, err := strconv.Atoi(quantityArg)
		if err != nil {
			return fmt.Errorf("invalid quantity %q", quantityArg)
		}
		if err := fs.Parse(rest); err != nil {
			return err
		}
		if err := s.cart.SetQuantity(productID, *color, quantity); err != nil {
			return err
		}
		return s.printCart()
	default:
		return errors.New(usage)
	}
}

func (s *shop) printCart() error {
	lines := s.cart.All()
	if len(lines) == 0 {
		fmt.Fprintln(s.out, "Ваша корзина пуста")
		return nil
	}

	for _, line := range lines {
		p, ok := s.catalog.Product(line.ProductID)
		if !ok {
			fmt.Fprintf(s.out, "%-6s (нет в каталоге) x%d\n", line.ProductID, line.Quantity)
			continue
		}
		color := utils.OrDefault(line.ColorVariant, p.Color)
		fmt.Fprintf(s.out, "%-6s %s (%s) x%d = %s\n", p.ID, p.Name, color, line.Quantity, utils.FormatRUB(p.Price*int64(line.Quantity)))
	}

	quote := s.cart.Quote()
	fmt.Fprintf(s.out, "Подытог: %s\n", utils.FormatRUB(quote.Subtotal))
	fmt.Fprintf(s.out, "Скидка (%d%%): %s\n", quote.DiscountRate, utils.FormatRUB(quote.Discount))
	fmt.Fprintf(s.out, "Итого: %s\n", utils.FormatRUB(quote.Total))
	if quote.Subtotal < s.cfg.MinOrderAmount {
		fmt.Fprintf(s.out, "Минимальная сумма заказа: %s\n", utils.FormatRUB(s.cfg.MinOrderAmount))
	}
	return nil
}

func (s *shop) checkout(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("checkout", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	var fields checkout.Fields
	fs.StringVar(&fields.CustomerName, "name", "", "customer name")
	fs.StringVar(&fields.Phone, "phone", "", "phone number")
	fs.StringVar(&fields.Email, "email", "", "email")
	fs.StringVar(&fields.Address, "address", "", "nearest pickup point address")
	fs.StringVar(&fields.Comment, "comment", "", "order comment")
	fs.StringVar(&fields.PaymentMethod, "payment", "cash", "cash or transfer")
	fs.StringVar(&fields.DeliveryMethod, "delivery", "delivery", "delivery, pickup_moscow or pickup_ershovo")
	if err := fs.Parse(args); err != nil {
		return err
	}

	client := checkout.NewClient(s.cfg.BackendURL, s.cfg.BackendAnonKey, s.catalog, s.cart)
	form := checkout.NewForm(s.cart, client, s.cfg.MinOrderAmount)

	quote, err := form.Enter()
	if err != nil {
		return err
	}
	fmt.Fprintf(s.out, "К оплате: %s (скидка %d%%)\n", utils.FormatRUB(quote.Total), quote.DiscountRate)
	fmt.Fprintln(s.out, form.ButtonLabel()+" → "+checkout.LabelBusy)

	order, err := form.Submit(ctx, fields)
	if err != nil {
		return err
	}

	fmt.Fprintln(s.out, form.ButtonLabel())
	fmt.Fprintln(s.out, checkout.SuccessMessage)
	if order != nil {
		fmt.Fprintf(s.out, "Заказ: %s\n", order.ID)
	}
	return nil
}

// positional pops the first non-flag argument
func positional(args []string) (string, []string, error) {
	if len(args) == 0 || (len(args[0]) > 0 && args[0][0] == '-') {
		return "", nil, errors.New(usage)
	}
	return args[0], args[1:], nil
}
