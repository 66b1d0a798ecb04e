// Command client is a minimal CLI for exercising the transport server: it
// places orders, cancels them, and prints the reports the server streams
// back.
package main

import (
	"flag"
	"fmt"
	"io"
	"log"
	"net"
	"os"
	"strings"
	"time"

	"matchcore/internal/transport"
)

func main() {
	serverAddr := flag.String("server", "127.0.0.1:9001", "address of the matching server")
	action := flag.String("action", "place", "action to perform: ['place', 'cancel']")

	symbol := flag.String("symbol", "BTC-USDT", "trading symbol")
	sideStr := flag.String("side", "buy", "order side: 'buy' or 'sell'")
	typeStr := flag.String("type", "limit", "order type: 'market', 'limit', 'ioc', or 'fok'")
	price := flag.String("price", "", "limit price (decimal string, required for limit/ioc/fok)")
	qty := flag.String("qty", "1", "order quantity (decimal string)")
	orderID := flag.String("order-id", "", "optional caller-supplied order id")

	cancelOrderID := flag.String("cancel-order-id", "", "order id to cancel")

	flag.Parse()

	conn, err := net.Dial("tcp", *serverAddr)
	if err != nil {
		log.Fatalf("failed to connect to %s: %v", *serverAddr, err)
	}
	defer conn.Close()

	go readReports(conn)

	switch strings.ToLower(*action) {
	case "place":
		req := transport.NewOrderRequest{
			Symbol:    *symbol,
			OrderType: strings.ToLower(*typeStr),
			Side:      strings.ToLower(*sideStr),
			Quantity:  *qty,
			Price:     *price,
			OrderID:   *orderID,
		}
		frame, err := transport.EncodeNewOrder(req)
		if err != nil {
			log.Fatalf("failed to encode order: %v", err)
		}
		if _, err := conn.Write(frame); err != nil {
			log.Fatalf("failed to send order: %v", err)
		}
		fmt.Printf("-> sent %s %s order: %s %s @ %s\n", req.OrderType, req.Side, req.Quantity, *symbol, req.Price)

	case "cancel":
		if *cancelOrderID == "" {
			log.Fatal("-cancel-order-id is required for cancel")
		}
		frame := transport.EncodeCancelOrder(transport.CancelOrderRequest{
			Symbol:  *symbol,
			OrderID: *cancelOrderID,
		})
		if _, err := conn.Write(frame); err != nil {
			log.Fatalf("failed to send cancel: %v", err)
		}
		fmt.Printf("-> sent cancel for order %s\n", *cancelOrderID)

	default:
		log.Fatalf("unknown action: %s", *action)
	}

	// Give the server a moment to reply before exiting.
	time.Sleep(200 * time.Millisecond)
}

func readReports(conn net.Conn) {
	buf := make([]byte, 4*1024)
	for {
		n, err := conn.Read(buf)
		if err != nil {
			if err != io.EOF {
				log.Printf("connection closed: %v", err)
			}
			os.Exit(0)
		}
		report, err := transport.DecodeReport(buf[:n])
		if err != nil {
			log.Printf("failed to decode report: %v", err)
			continue
		}
		if report.Type == transport.ErrorReport {
			fmt.Printf("[ERROR] %s\n", report.Err)
			continue
		}
		fmt.Printf("[REPORT] order=%s status=%s symbol=%s price=%s qty=%s\n",
			report.OrderID, report.Status, report.Symbol, report.Price, report.Quantity)
	}
}
