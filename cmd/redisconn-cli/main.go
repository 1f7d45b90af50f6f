package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/pior/redisconn"
	"github.com/pior/redisconn/resp"
)

func main() {
	var (
		uri     = flag.String("uri", "tcp://127.0.0.1:6379", "Connection URI, e.g. tcp://:password@host:6379?database=1 or unix:///path/to/sock")
		config  = flag.String("config", "", "YAML parameters file, overrides -uri")
		verbose = flag.Bool("v", false, "Log connection events")
	)
	flag.Parse()

	level := zerolog.WarnLevel
	if *verbose {
		level = zerolog.DebugLevel
	}
	logger := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.TimeOnly}).
		Level(level).With().Timestamp().Logger()

	params, err := loadParameters(*uri, *config)
	if err != nil {
		logger.Fatal().Err(err).Msg("invalid parameters")
	}

	ctx := context.Background()

	conn, err := redisconn.Dial(ctx, params,
		redisconn.WithLogger(logger),
		redisconn.WithFailureHandler(redisconn.LogFailures(logger, nil)),
	)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect")
	}
	defer conn.Close()

	fmt.Printf("Connected to %s\n", conn)
	fmt.Println("Type any server command, or: connect, disconnect, stats, help, quit")
	fmt.Println()

	scanner := bufio.NewScanner(os.Stdin)
	for {
		fmt.Print("> ")
		if !scanner.Scan() {
			break
		}

		parts := strings.Fields(scanner.Text())
		if len(parts) == 0 {
			continue
		}

		switch strings.ToLower(parts[0]) {
		case "quit", "exit":
			fmt.Println("Goodbye!")
			return

		case "help":
			fmt.Println("Commands:")
			fmt.Println("  <NAME> [args...]  - Send a command and print its reply")
			fmt.Println("  connect           - Open the connection (replays AUTH/SELECT)")
			fmt.Println("  disconnect        - Close the connection")
			fmt.Println("  stats             - Show connection statistics")
			fmt.Println("  quit              - Exit the CLI")

		case "connect":
			if err := conn.Connect(ctx); err != nil {
				fmt.Printf("Error: %v\n", err)
			}

		case "disconnect":
			if err := conn.Disconnect(); err != nil {
				fmt.Printf("Error: %v\n", err)
			}

		case "stats":
			printStats(conn)

		default:
			handleCommand(ctx, conn, parts[0], parts[1:])
		}
	}

	if err := scanner.Err(); err != nil {
		fmt.Printf("Error reading input: %v\n", err)
	}
}

func loadParameters(uri, path string) (redisconn.Parameters, error) {
	if path == "" {
		return redisconn.ParseParameters(uri)
	}

	f, err := os.Open(path)
	if err != nil {
		return redisconn.Parameters{}, err
	}
	defer f.Close()
	return redisconn.LoadParameters(f)
}

func handleCommand(ctx context.Context, conn *redisconn.Connection, name string, args []string) {
	start := time.Now()
	reply, err := conn.ExecuteCommand(ctx, redisconn.NewCommand(strings.ToUpper(name), args...))
	duration := time.Since(start)

	if err != nil {
		fmt.Printf("Error: %v (took %v)\n", err, duration)
		if redisconn.ShouldCloseConnection(err) {
			_ = conn.Disconnect()
			fmt.Println("Connection dropped, it will reopen on the next command")
		}
		return
	}

	printReply(reply, "")
	fmt.Printf("(took %v)\n", duration)
}

func printReply(reply any, indent string) {
	switch r := reply.(type) {
	case resp.Error:
		fmt.Printf("%s(error) %s\n", indent, string(r))
	case resp.Status:
		fmt.Printf("%s%s\n", indent, string(r))
	case resp.Integer:
		fmt.Printf("%s(integer) %d\n", indent, int64(r))
	case resp.Bulk:
		if r.IsNil() {
			fmt.Printf("%s(nil)\n", indent)
			return
		}
		fmt.Printf("%s%q\n", indent, string(r))
	case resp.Array:
		if r.IsNil() {
			fmt.Printf("%s(nil array)\n", indent)
			return
		}
		if len(r) == 0 {
			fmt.Printf("%s(empty array)\n", indent)
			return
		}
		for i, item := range r {
			fmt.Printf("%s%d)\n", indent, i+1)
			printReply(item, indent+"   ")
		}
	default:
		fmt.Printf("%s%v\n", indent, r)
	}
}

func printStats(conn *redisconn.Connection) {
	s := conn.Stats()
	fmt.Printf("Connection %s (connected: %v)\n", conn, conn.IsConnected())
	fmt.Printf("  Connects:          %d\n", s.Connects)
	fmt.Printf("  Disconnects:       %d\n", s.Disconnects)
	fmt.Printf("  Commands:          %d\n", s.Commands)
	fmt.Printf("  Init commands:     %d\n", s.InitCommands)
	fmt.Printf("  Connection errors: %d\n", s.ConnectionErrors)
	fmt.Printf("  Protocol errors:   %d\n", s.ProtocolErrors)
}
