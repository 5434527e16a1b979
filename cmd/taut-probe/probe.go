package main

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/chzyer/readline"

	"github.com/tautline/taut-go/pkg/client"
	"github.com/tautline/taut-go/pkg/events"
	"github.com/tautline/taut-go/pkg/transport"
)

// probe is the interactive command loop around a client.
type probe struct {
	c  *client.Client
	rl *readline.Instance
}

func newProbe(c *client.Client) (*probe, error) {
	rl, err := readline.NewEx(&readline.Config{
		Prompt:          "probe> ",
		InterruptPrompt: "^C",
		EOFPrompt:       "exit",
	})
	if err != nil {
		return nil, fmt.Errorf("create readline: %w", err)
	}

	p := &probe{c: c, rl: rl}
	p.subscribe()
	return p, nil
}

// subscribe mirrors lifecycle events onto the prompt-aware writer.
func (p *probe) subscribe() {
	out := p.rl.Stdout()

	p.c.On(events.Open, func(any) {
		fmt.Fprintf(out, "<< open url=%s protocol=%q\n", p.c.URL(), p.c.Protocol())
	})
	p.c.On(events.Close, func(payload any) {
		reason, _ := payload.(events.Reason)
		fmt.Fprintf(out, "<< close code=%d manual=%v reason=%q\n", reason.Code, reason.Manual, reason.Text)
	})
	p.c.On(events.Data, func(payload any) {
		msg, _ := payload.(transport.Message)
		fmt.Fprintf(out, "<< data binary=%v %s\n", msg.Binary, msg.Data)
	})
	p.c.On(events.Error, func(payload any) {
		fmt.Fprintf(out, "<< error %v\n", payload)
	})
	p.c.On(events.Abort, func(payload any) {
		fmt.Fprintf(out, "<< abort %v\n", payload)
	})
	p.c.On(events.Reconnect, func(any) {
		fmt.Fprintf(out, "<< reconnect attempt=%d\n", p.c.Retries())
	})
	p.c.On(events.Pong, func(any) {
		fmt.Fprintln(out, "<< pong")
	})
}

// run drives the command loop until quit or EOF.
func (p *probe) run() {
	defer p.rl.Close()

	p.printHelp()

	for {
		line, err := p.rl.Readline()
		if err != nil {
			if err == readline.ErrInterrupt {
				continue
			}
			fmt.Fprintln(p.rl.Stdout(), "Exiting...")
			return
		}

		input := strings.TrimSpace(line)
		if input == "" {
			continue
		}

		parts := strings.Fields(input)
		cmd := strings.ToLower(parts[0])
		args := parts[1:]

		switch cmd {
		case "help", "?":
			p.printHelp()

		case "connect", "c":
			p.c.Connect()

		case "disconnect", "d":
			p.c.Disconnect()

		case "reconnect":
			p.c.Reconnect()

		case "send", "s":
			p.cmdSend(input, args)

		case "ping":
			p.c.Ping()

		case "beat":
			p.cmdBeat(args)

		case "pause":
			p.c.Pause()

		case "resume":
			p.c.Resume()

		case "abort":
			p.cmdAbort(args)

		case "binary":
			p.cmdBinary(args)

		case "status", "stats":
			p.cmdStatus()

		case "quit", "exit", "q":
			fmt.Fprintln(p.rl.Stdout(), "Exiting...")
			return

		default:
			fmt.Fprintf(p.rl.Stdout(), "Unknown command: %s (type 'help' for commands)\n", cmd)
		}
	}
}

// cmdSend transmits the rest of the line, as parsed JSON when it
// parses, otherwise as the raw string.
func (p *probe) cmdSend(input string, args []string) {
	if len(args) == 0 {
		fmt.Fprintln(p.rl.Stdout(), "Usage: send <payload>")
		return
	}

	raw := strings.TrimSpace(strings.TrimPrefix(strings.TrimPrefix(input, "send"), "s"))
	var payload any = raw
	var parsed any
	if err := json.Unmarshal([]byte(raw), &parsed); err == nil {
		payload = parsed
	}

	if err := p.c.Send(payload); err != nil {
		fmt.Fprintf(p.rl.Stdout(), "send failed: %v\n", err)
	}
}

func (p *probe) cmdBeat(args []string) {
	if len(args) == 0 {
		fmt.Fprintln(p.rl.Stdout(), "Usage: beat start|stop")
		return
	}
	switch strings.ToLower(args[0]) {
	case "start":
		p.c.StartBeat()
	case "stop":
		p.c.StopBeat()
	default:
		fmt.Fprintln(p.rl.Stdout(), "Usage: beat start|stop")
	}
}

func (p *probe) cmdAbort(args []string) {
	if len(args) == 0 {
		p.c.Abort(nil, nil)
		return
	}
	reason := strings.Join(args, " ")
	p.c.Abort(reason, reason)
}

func (p *probe) cmdBinary(args []string) {
	if len(args) == 0 {
		fmt.Fprintf(p.rl.Stdout(), "binary mode: %s\n", p.c.Binary())
		return
	}
	switch transport.BinaryType(strings.ToLower(args[0])) {
	case transport.BinaryBlob:
		p.c.SetBinary(transport.BinaryBlob)
	case transport.BinaryArrayBuffer:
		p.c.SetBinary(transport.BinaryArrayBuffer)
	default:
		fmt.Fprintf(p.rl.Stdout(), "Usage: binary %s|%s\n", transport.BinaryBlob, transport.BinaryArrayBuffer)
	}
}

func (p *probe) cmdStatus() {
	w := p.rl.Stdout()
	stats := p.c.Stats()
	fmt.Fprintf(w, "state:    %s (transport %s)\n", stats.State, p.c.ReadyState())
	fmt.Fprintf(w, "url:      %s\n", stats.URL)
	fmt.Fprintf(w, "paused:   %v  beating: %v\n", stats.Paused, stats.Beating)
	fmt.Fprintf(w, "retries:  %d\n", stats.Retries)
	fmt.Fprintf(w, "uptime:   %s\n", stats.Uptime)
	fmt.Fprintf(w, "outbound: %d queued, %d dropped, %d bytes pending\n",
		stats.OutboundQueued, stats.OutboundDropped, p.c.BufferedAmount())
	fmt.Fprintf(w, "inbound:  %d queued, %d dropped\n", stats.InboundQueued, stats.InboundDropped)
}

func (p *probe) printHelp() {
	fmt.Fprint(p.rl.Stdout(), `
Commands:
  Connection:
    connect            - Establish the connection
    disconnect         - Close the connection and reset state
    reconnect          - Schedule an automatic reconnect
    abort [reason]     - Abort, announcing the reason to the peer

  Traffic:
    send <payload>     - Send a payload (JSON or raw text)
    ping               - Send a single liveness probe
    beat start|stop    - Control the heartbeat loop
    pause / resume     - Suspend and resume delivery
    binary [mode]      - Show or set the payload decoding mode

  Inspection:
    status             - Show connection state and counters
    help               - Show this help
    quit               - Exit
`)
}
