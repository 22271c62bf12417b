// Command client is a flag-driven TCP client for manually exercising
// the gateway: place/cancel/log-book actions, printing execution and
// error reports as they arrive.
package main

import (
	"flag"
	"fmt"
	"io"
	"log"
	"net"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/fenrir-labs/matcher/internal/gateway"
	"github.com/fenrir-labs/matcher/internal/matcher"
)

func main() {
	serverAddr := flag.String("server", "127.0.0.1:9001", "address of the matching server")
	action := flag.String("action", "place", "action to perform: place, cancel, log")

	orderID := flag.Uint64("id", 0, "order id (compulsory for place/cancel)")
	sideStr := flag.String("side", "buy", "order side: buy or sell")
	typeStr := flag.String("type", "limit", "order type: limit or market")
	tifStr := flag.String("tif", "gtc", "time in force: gtc, ioc, fok, gtt")
	expiresIn := flag.Duration("expires-in", 0, "GTT expiry, relative to now")
	price := flag.Float64("price", 100.0, "limit price")
	qty := flag.Float64("qty", 1.0, "quantity")

	flag.Parse()

	if *orderID == 0 && *action != "log" {
		fmt.Println("Error: -id is required for place/cancel")
		flag.Usage()
		os.Exit(1)
	}

	conn, err := net.Dial("tcp", *serverAddr)
	if err != nil {
		log.Fatalf("failed to connect to %s: %v", *serverAddr, err)
	}
	defer conn.Close()
	fmt.Printf("connected to %s\n", *serverAddr)

	go readReports(conn)

	switch strings.ToLower(*action) {
	case "place":
		side := matcher.Buy
		if strings.EqualFold(*sideStr, "sell") {
			side = matcher.Sell
		}
		orderType := matcher.Limit
		if strings.EqualFold(*typeStr, "market") {
			orderType = matcher.Market
		}
		tif, expiresAtMs := parseTif(*tifStr, *expiresIn)

		msg := gateway.NewOrderMsg{
			OrderID:     *orderID,
			Side:        side,
			OrderType:   orderType,
			TifKind:     tif,
			ExpiresAtMs: expiresAtMs,
			Price:       *price,
			Qty:         *qty,
		}
		if _, err := conn.Write(gateway.EncodeNewOrder(msg)); err != nil {
			log.Fatalf("failed to send order: %v", err)
		}
		fmt.Printf("-> sent order %d: %s %s %.4f @ %.4f (%s)\n", *orderID, *sideStr, *typeStr, *qty, *price, *tifStr)

	case "cancel":
		msg := gateway.CancelOrderMsg{OrderID: *orderID}
		if _, err := conn.Write(gateway.EncodeCancelOrder(msg)); err != nil {
			log.Fatalf("failed to send cancel: %v", err)
		}
		fmt.Printf("-> sent cancel for order %d\n", *orderID)

	case "log":
		if _, err := conn.Write(gateway.EncodeLogBook()); err != nil {
			log.Fatalf("failed to send log-book request: %v", err)
		}
		fmt.Println("-> sent log-book request")

	default:
		log.Fatalf("unknown action: %s", *action)
	}

	fmt.Println("\nlistening for reports... (ctrl+c to exit)")
	select {}
}

func parseTif(s string, expiresIn time.Duration) (matcher.TifKind, int64) {
	switch strings.ToLower(s) {
	case "ioc":
		return matcher.IOC, 0
	case "fok":
		return matcher.FOK, 0
	case "gtt":
		return matcher.GTT, time.Now().Add(expiresIn).UnixMilli()
	default:
		return matcher.GTC, 0
	}
}

func readReports(conn net.Conn) {
	for {
		buf := make([]byte, 4*1024)
		n, err := conn.Read(buf)
		if err != nil {
			if err != io.EOF {
				log.Printf("connection lost: %v", err)
			}
			os.Exit(0)
		}
		// One read may carry several back-to-back report frames.
		data := buf[:n]
		for len(data) > 0 {
			r, err := gateway.DecodeReport(data)
			if err != nil {
				log.Printf("malformed report: %v", err)
				break
			}
			printReport(r)
			data = data[len(r.Serialize()):]
		}
	}
}

func printReport(r gateway.Report) {
	if r.Type == gateway.ErrorReport {
		fmt.Printf("\n[ERROR] %s\n", r.Err)
		return
	}
	switch r.EventKind {
	case matcher.EventTraded:
		fmt.Printf("\n[TRADE] taker=%d maker=%d qty=%s price=%s takerDone=%v makerDone=%v\n",
			r.TakerOrderID, r.MakerOrderID, formatQty(r.Qty), formatPrice(r.Price), r.TakerCompleted, r.MakerCompleted)
	case matcher.EventPlaced:
		fmt.Printf("\n[PLACED] order=%d qty=%s price=%s\n", r.OrderID, formatQty(r.Qty), formatPrice(r.Price))
	case matcher.EventCancelled:
		fmt.Printf("\n[CANCELLED] order=%d qty=%s fully=%v\n", r.OrderID, formatQty(r.Qty), r.FullyCancelled)
	case matcher.EventRejected:
		fmt.Printf("\n[REJECTED] order=%d reason=%s\n", r.OrderID, r.Err)
	}
}

func formatQty(q float64) string   { return strconv.FormatFloat(q, 'f', -1, 64) }
func formatPrice(p float64) string { return strconv.FormatFloat(p, 'f', -1, 64) }
