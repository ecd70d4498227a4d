package main

import (
	"encoding/base64"
	"flag"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"
)

// mockcallback plays the gateway redirecting a customer back after payment.
func main() {
	base := flag.String("base", "http://localhost:8080", "Checkout service base URL")
	status := flag.String("status", "accept", "Callback status (accept, cancel)")
	orderID := flag.String("order-id", "125", "Order id")
	callback := flag.String("callback", "http://localhost:8080/checkout", "Merchant callback URL (sent as zo_cb)")
	token := flag.String("token", "", "Session token of a mounted payment form (optional)")
	txnID := flag.String("txnid", fmt.Sprintf("%d", time.Now().UnixNano()), "Gateway transaction id")
	dryRun := flag.Bool("dry-run", false, "Only print the callback URL, don't send")

	flag.Parse()

	q := url.Values{}
	q.Set("order_id", *orderID)
	q.Set("zo_cb", base64.URLEncoding.EncodeToString([]byte(*callback)))
	q.Set("txnid", *txnID)
	if *token != "" {
		q.Set("token", *token)
	}
	target := strings.TrimRight(*base, "/") + "/api/checkout/order/callback/" + *status + "?" + q.Encode()

	fmt.Printf("Callback: %s\n", target)
	if *dryRun {
		fmt.Println("\n[DRY RUN] Not sending request")
		return
	}

	client := &http.Client{
		Timeout: 10 * time.Second,
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}
	resp, err := client.Get(target)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error sending callback: %v\n", err)
		os.Exit(1)
	}
	defer resp.Body.Close()

	fmt.Printf("Status: %d\n", resp.StatusCode)
	if loc := resp.Header.Get("Location"); loc != "" {
		fmt.Printf("Redirect: %s\n", loc)
	}
	if resp.StatusCode != http.StatusFound {
		os.Exit(1)
	}
}
