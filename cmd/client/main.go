package main

import (
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"strconv"
	"text/tabwriter"
	"time"

	"github.com/fatih/color"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/erain9/lobsim/pkg/api"
)

var (
	serverAddr = flag.String("addr", "http://localhost:8080", "The server base URL")
)

func main() {
	zerolog.TimeFieldFormat = time.RFC3339
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})

	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	command := os.Args[1]
	os.Args = append(os.Args[:1], os.Args[2:]...)

	client := &http.Client{Timeout: 10 * time.Second}

	switch command {
	case "place":
		placeOrder(client)
	case "cancel":
		if len(os.Args) < 2 {
			fmt.Println("Usage: cancel <order-id>")
			os.Exit(1)
		}
		cancelOrder(client, os.Args[1])
	case "book":
		showBook(client)
	case "history":
		showHistory(client)
	case "health":
		showHealth(client)
	default:
		fmt.Printf("Unknown command: %s\n", command)
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println("Usage: client [flags] <command>")
	fmt.Println()
	fmt.Println("Commands:")
	fmt.Println("  place    -client <id> -side BUY|SELL -price <p> -volume <v>")
	fmt.Println("  cancel   <order-id>")
	fmt.Println("  book     -levels <n>")
	fmt.Println("  history")
	fmt.Println("  health")
}

func placeOrder(client *http.Client) {
	clientID := flag.String("client", "cli", "Client identifier")
	side := flag.String("side", "BUY", "Order side (BUY or SELL)")
	price := flag.Float64("price", 0, "Limit price")
	volume := flag.Int64("volume", 0, "Order volume")
	flag.Parse()

	reqBody := api.PlaceOrderRequest{
		Client: *clientID,
		Side:   *side,
		Price:  *price,
		Volume: *volume,
	}
	body, err := json.Marshal(reqBody)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to encode request")
	}

	resp, err := client.Post(*serverAddr+"/order", "application/json", bytes.NewReader(body))
	if err != nil {
		log.Fatal().Err(err).Msg("Request failed")
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusCreated {
		fatalAPIError(resp)
	}

	var placed api.PlaceOrderResponse
	if err := json.NewDecoder(resp.Body).Decode(&placed); err != nil {
		log.Fatal().Err(err).Msg("Failed to decode response")
	}

	log.Info().
		Uint64("order_id", placed.OrderID).
		Str("status", placed.Status).
		Int64("executed", placed.ExecutedVolume).
		Int64("remaining", placed.RemainingVolume).
		Msg("Order placed")

	for _, trade := range placed.Trades {
		log.Info().
			Str("price", trade.Price).
			Int64("volume", trade.Volume).
			Uint64("maker_order_id", trade.MakerOrder).
			Msg("Trade")
	}
}

func cancelOrder(client *http.Client, orderID string) {
	if _, err := strconv.ParseUint(orderID, 10, 64); err != nil {
		log.Fatal().Str("order_id", orderID).Msg("Order id must be a number")
	}

	req, err := http.NewRequest(http.MethodDelete, *serverAddr+"/order/"+orderID, nil)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to build request")
	}

	resp, err := client.Do(req)
	if err != nil {
		log.Fatal().Err(err).Msg("Request failed")
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		fatalAPIError(resp)
	}

	var cancelled api.CancelOrderResponse
	if err := json.NewDecoder(resp.Body).Decode(&cancelled); err != nil {
		log.Fatal().Err(err).Msg("Failed to decode response")
	}

	log.Info().
		Uint64("order_id", cancelled.OrderID).
		Int64("cancelled_volume", cancelled.CancelledVolume).
		Msg("Order cancelled")
}

func showBook(client *http.Client) {
	levels := flag.Int("levels", 5, "Number of price levels per side")
	flag.Parse()

	resp, err := client.Get(fmt.Sprintf("%s/lob?levels=%d", *serverAddr, *levels))
	if err != nil {
		log.Fatal().Err(err).Msg("Request failed")
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		fatalAPIError(resp)
	}

	var depth api.DepthResponse
	if err := json.NewDecoder(resp.Body).Decode(&depth); err != nil {
		log.Fatal().Err(err).Msg("Failed to decode response")
	}

	printDepth(&depth)
}

func printDepth(depth *api.DepthResponse) {
	cyan := color.New(color.FgCyan).SprintfFunc()
	red := color.New(color.FgRed).SprintfFunc()
	green := color.New(color.FgGreen).SprintfFunc()

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 3, ' ', tabwriter.AlignRight)

	fmt.Fprintf(w, "%15s|%15s|%s\n", cyan("Price"), cyan("Volume"), cyan("Side"))
	fmt.Fprintf(w, "%15s|%15s|%s\n", "---------------", "---------------", "----")

	// Asks print worst first so the best ask sits next to the best bid.
	for i := len(depth.Asks) - 1; i >= 0; i-- {
		level := depth.Asks[i]
		price, _ := strconv.ParseFloat(level.Price, 64)
		fmt.Fprintf(w, "%15.3f|%15d|%s\n", price, level.Volume, red("ASK"))
	}

	fmt.Fprintf(w, "%15s|%15s|%s\n", "---------------", "---------------", "----")

	for _, level := range depth.Bids {
		price, _ := strconv.ParseFloat(level.Price, 64)
		fmt.Fprintf(w, "%15.3f|%15d|%s\n", price, level.Volume, green("BID"))
	}

	w.Flush()
}

func showHistory(client *http.Client) {
	resp, err := client.Get(*serverAddr + "/price_history")
	if err != nil {
		log.Fatal().Err(err).Msg("Request failed")
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		fatalAPIError(resp)
	}

	var history api.PriceHistoryResponse
	if err := json.NewDecoder(resp.Body).Decode(&history); err != nil {
		log.Fatal().Err(err).Msg("Failed to decode response")
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 3, ' ', tabwriter.AlignRight)
	fmt.Fprintf(w, "%25s|%15s\n", "Time", "Mid Price")
	for _, point := range history.Points {
		ts := time.UnixMilli(point.Timestamp).Format(time.RFC3339)
		fmt.Fprintf(w, "%25s|%15s\n", ts, point.Price)
	}
	w.Flush()
}

func showHealth(client *http.Client) {
	resp, err := client.Get(*serverAddr + "/health")
	if err != nil {
		log.Fatal().Err(err).Msg("Request failed")
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to read response")
	}
	fmt.Println(string(body))
}

func fatalAPIError(resp *http.Response) {
	var apiErr api.ErrorResponse
	if err := json.NewDecoder(resp.Body).Decode(&apiErr); err == nil && apiErr.Error != "" {
		log.Fatal().Int("status", resp.StatusCode).Str("error", apiErr.Error).Msg("Request rejected")
	}
	log.Fatal().Int("status", resp.StatusCode).Msg("Request rejected")
}
