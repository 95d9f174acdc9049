// hl7send is the smoke-test client: it frames message files with MLLP, sends
// them over one TCP connection, and prints each ack.
package main

import (
	"flag"
	"fmt"
	"net"
	"os"
	"strings"
	"time"

	"github.com/danmuck/hl7ctl/internal/hl7"
	"github.com/danmuck/hl7ctl/internal/mllp"
)

func main() {
	addr := flag.String("addr", "127.0.0.1:2575", "MLP server address")
	timeout := flag.Duration("timeout", 10*time.Second, "per-message ack timeout")
	flag.Parse()

	if flag.NArg() == 0 {
		fmt.Fprintln(os.Stderr, "usage: hl7send [-addr host:port] file [file...]")
		os.Exit(2)
	}

	conn, err := net.DialTimeout("tcp", *addr, *timeout)
	if err != nil {
		fmt.Fprintf(os.Stderr, "hl7send: %v\n", err)
		os.Exit(1)
	}
	defer conn.Close()

	framer := mllp.NewFramer()
	for _, path := range flag.Args() {
		if err := sendOne(conn, framer, path, *timeout); err != nil {
			fmt.Fprintf(os.Stderr, "hl7send: %s: %v\n", path, err)
			os.Exit(1)
		}
	}
}

func sendOne(conn net.Conn, framer *mllp.Framer, path string, timeout time.Duration) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	payload := normalizeTerminators(string(data))
	if payload == "" {
		return fmt.Errorf("empty message file")
	}

	if err := conn.SetDeadline(time.Now().Add(timeout)); err != nil {
		return err
	}
	if err := mllp.WritePayload(conn, []byte(payload)); err != nil {
		return err
	}

	ack, err := awaitAck(conn, framer)
	if err != nil {
		return err
	}
	fmt.Printf("%s -> %s\n", path, hl7.ExtractMessageType(payload))
	for _, line := range strings.Split(ack, "\r") {
		fmt.Printf("  %s\n", line)
	}
	return nil
}

func awaitAck(conn net.Conn, framer *mllp.Framer) (string, error) {
	buf := make([]byte, 4096)
	for {
		n, err := conn.Read(buf)
		if n > 0 {
			if acks := framer.Push(buf[:n]); len(acks) > 0 {
				return acks[0], nil
			}
		}
		if err != nil {
			return "", err
		}
	}
}

// normalizeTerminators maps editor-friendly newlines onto the wire's CR.
func normalizeTerminators(text string) string {
	text = strings.ReplaceAll(text, "\r\n", "\r")
	text = strings.ReplaceAll(text, "\n", "\r")
	return strings.Trim(text, "\r")
}
