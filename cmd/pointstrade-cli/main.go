package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	json "github.com/goccy/go-json"

	"pointstrade/pkg/pointstrade"
)

const version = "0.1.0"

func main() {
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: pointstrade-cli <command> [options]\n\n")
		fmt.Fprintf(os.Stderr, "Commands:\n")
		fmt.Fprintf(os.Stderr, "  version                Print the CLI version\n")
		fmt.Fprintf(os.Stderr, "  health                 Check pointstrade-server health\n")
		fmt.Fprintf(os.Stderr, "  wallet <member_id>     Show a member's wallet balances\n")
		fmt.Fprintf(os.Stderr, "  orders <basket_id>     List the order lines of a basket\n")
		fmt.Fprintf(os.Stderr, "  redeem <request.json>  Submit a redemption basket from a JSON file\n")
		fmt.Fprintf(os.Stderr, "\nThe server URL defaults to http://localhost:8080 and can be set\n")
		fmt.Fprintf(os.Stderr, "with POINTSTRADE_URL.\n\n")
	}

	if len(os.Args) < 2 {
		flag.Usage()
		os.Exit(1)
	}

	baseURL := "http://localhost:8080"
	if u := os.Getenv("POINTSTRADE_URL"); u != "" {
		baseURL = u
	}
	client := pointstrade.NewClient(baseURL)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	switch os.Args[1] {
	case "version":
		fmt.Printf("pointstrade-cli %s\n", version)

	case "health":
		if err := client.Health(ctx); err != nil {
			fatalf("health check failed: %v", err)
		}
		fmt.Println("ok")

	case "wallet":
		if len(os.Args) < 3 {
			fatalf("usage: pointstrade-cli wallet <member_id>")
		}
		w, err := client.GetWallet(ctx, os.Args[2])
		if err != nil {
			fatalf("fetching wallet: %v", err)
		}
		printJSON(w)

	case "orders":
		if len(os.Args) < 3 {
			fatalf("usage: pointstrade-cli orders <basket_id>")
		}
		orders, err := client.GetBasketOrders(ctx, os.Args[2])
		if err != nil {
			fatalf("listing orders: %v", err)
		}
		printJSON(orders)

	case "redeem":
		if len(os.Args) < 3 {
			fatalf("usage: pointstrade-cli redeem <request.json>")
		}
		data, err := os.ReadFile(os.Args[2])
		if err != nil {
			fatalf("reading request file: %v", err)
		}
		var req pointstrade.RedemptionRequest
		if err := json.Unmarshal(data, &req); err != nil {
			fatalf("parsing request file: %v", err)
		}
		res, err := client.SubmitRedemption(ctx, req)
		if err != nil {
			fatalf("submitting redemption: %v", err)
		}
		printJSON(res)

	default:
		fmt.Fprintf(os.Stderr, "unknown command: %s\n\n", os.Args[1])
		flag.Usage()
		os.Exit(1)
	}
}

func printJSON(v any) {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		fatalf("encoding output: %v", err)
	}
	fmt.Println(string(out))
}

func fatalf(format string, args ...any) {
	fmt.Fprintf(os.Stderr, format+"\n", args...)
	os.Exit(1)
}
