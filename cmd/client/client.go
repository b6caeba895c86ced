package main

import (
	"encoding/binary"
	"flag"
	"fmt"
	"io"
	"log"
	"net"
	"os"
	"strings"

	"sleipnir/internal/common"
	sleipnirNet "sleipnir/internal/net"
)

func main() {
	serverAddr := flag.String("server", "127.0.0.1:9001", "Address of the exchange server")
	action := flag.String("action", "place", "Action to perform: ['place', 'cancel', 'modify', 'log']")

	// Order parameters.
	id := flag.Uint64("id", 0, "Order identity (caller-assigned, unique)")
	sideStr := flag.String("side", "buy", "Order side: 'buy' or 'sell'")
	typeStr := flag.String("type", "gtc", "Order type: 'gtc', 'fak', 'fok', 'gfd' or 'mar'")
	price := flag.Uint64("price", 100, "Limit price in ticks")
	qty := flag.Uint64("qty", 10, "Quantity")

	flag.Parse()

	conn, err := net.Dial("tcp", *serverAddr)
	if err != nil {
		log.Fatalf("Failed to connect to server at %s: %v", *serverAddr, err)
	}
	defer conn.Close()
	fmt.Printf("Connected to %s\n", *serverAddr)

	// Start listening for reports (async).
	go readReports(conn)

	side := common.Buy
	if strings.ToLower(*sideStr) == "sell" {
		side = common.Sell
	}

	orderType, err := parseOrderType(*typeStr)
	if err != nil {
		log.Fatal(err)
	}

	switch strings.ToLower(*action) {
	case "place":
		if err := sendNewOrder(conn, *id, orderType, side, *price, *qty); err != nil {
			log.Fatalf("Failed to place order: %v", err)
		}
		fmt.Printf("-> Sent %s %s %d@%d (id %d)\n", orderType, side, *qty, *price, *id)

	case "cancel":
		if err := sendCancelOrder(conn, *id); err != nil {
			log.Fatalf("Failed to send cancel request: %v", err)
		}
		fmt.Printf("-> Sent Cancel for id %d\n", *id)

	case "modify":
		if err := sendModifyOrder(conn, *id, side, *price, *qty); err != nil {
			log.Fatalf("Failed to send modify request: %v", err)
		}
		fmt.Printf("-> Sent Modify for id %d: %s %d@%d\n", *id, side, *qty, *price)

	case "log":
		if err := sendLogBook(conn); err != nil {
			log.Fatalf("Failed to send log request: %v", err)
		}
		fmt.Println("-> Sent Log Request")

	default:
		log.Fatalf("Unknown action: %s", *action)
	}

	// Keep the client alive to receive execution reports.
	fmt.Println("\nListening for reports... (Press Ctrl+C to exit)")
	select {}
}

func parseOrderType(input string) (common.OrderType, error) {
	switch strings.ToLower(input) {
	case "gtc":
		return common.GTC, nil
	case "fak":
		return common.FAK, nil
	case "fok":
		return common.FOK, nil
	case "gfd":
		return common.GFD, nil
	case "mar":
		return common.MAR, nil
	}
	return common.TypeUnknown, fmt.Errorf("unknown order type %q", input)
}

// sendNewOrder constructs and sends the NewOrder message.
func sendNewOrder(conn net.Conn, id uint64, orderType common.OrderType, side common.Side, price, qty uint64) error {
	buf := make([]byte, sleipnirNet.BaseMessageHeaderLen+sleipnirNet.NewOrderMessageLen)
	binary.BigEndian.PutUint16(buf[0:2], uint16(sleipnirNet.NewOrder))
	binary.BigEndian.PutUint64(buf[2:10], id)
	binary.BigEndian.PutUint16(buf[10:12], uint16(orderType))
	buf[12] = byte(side)
	binary.BigEndian.PutUint64(buf[13:21], price)
	binary.BigEndian.PutUint64(buf[21:29], qty)

	_, err := conn.Write(buf)
	return err
}

// sendCancelOrder constructs and sends the CancelOrder message.
func sendCancelOrder(conn net.Conn, id uint64) error {
	buf := make([]byte, sleipnirNet.BaseMessageHeaderLen+sleipnirNet.CancelOrderMessageLen)
	binary.BigEndian.PutUint16(buf[0:2], uint16(sleipnirNet.CancelOrder))
	binary.BigEndian.PutUint64(buf[2:10], id)

	_, err := conn.Write(buf)
	return err
}

// sendModifyOrder constructs and sends the ModifyOrder message.
func sendModifyOrder(conn net.Conn, id uint64, side common.Side, price, qty uint64) error {
	buf := make([]byte, sleipnirNet.BaseMessageHeaderLen+sleipnirNet.ModifyOrderMessageLen)
	binary.BigEndian.PutUint16(buf[0:2], uint16(sleipnirNet.ModifyOrder))
	binary.BigEndian.PutUint64(buf[2:10], id)
	buf[10] = byte(side)
	binary.BigEndian.PutUint64(buf[11:19], price)
	binary.BigEndian.PutUint64(buf[19:27], qty)

	_, err := conn.Write(buf)
	return err
}

func sendLogBook(conn net.Conn) error {
	buf := make([]byte, sleipnirNet.BaseMessageHeaderLen)
	binary.BigEndian.PutUint16(buf[0:2], uint16(sleipnirNet.LogBook))
	_, err := conn.Write(buf)
	return err
}

// readReports continuously reads and prints Report messages from the
// server.
func readReports(conn net.Conn) {
	for {
		header := make([]byte, sleipnirNet.ReportFixedHeaderLen)
		if _, err := io.ReadFull(conn, header); err != nil {
			if err != io.EOF {
				log.Printf("Connection lost: %v", err)
			}
			os.Exit(0)
		}

		msgType := sleipnirNet.ReportMessageType(header[0])
		side := common.Side(header[1])
		orderID := binary.BigEndian.Uint64(header[2:10])
		price := binary.BigEndian.Uint64(header[10:18])
		qty := binary.BigEndian.Uint64(header[18:26])
		errStrLen := binary.BigEndian.Uint32(header[26:30])

		errStr := ""
		if errStrLen > 0 {
			body := make([]byte, errStrLen)
			if _, err := io.ReadFull(conn, body); err != nil {
				log.Printf("Error reading report body: %v", err)
				return
			}
			errStr = string(body)
		}

		if msgType == sleipnirNet.ErrorReport {
			fmt.Printf("\n[SERVER ERROR] order %d: %s\n", orderID, errStr)
		} else {
			fmt.Printf("\n[EXECUTION] %s | id: %d | Qty: %d | Price: %d\n",
				side, orderID, qty, price)
		}
	}
}
