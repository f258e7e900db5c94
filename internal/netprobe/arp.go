package netprobe

import (
	"bufio"
	"io"
	"net"
	"net/netip"
	"strings"
)

const incompleteHardwareAddr = "00:00:00:00:00:00"

// parseProcNetARP reads /proc/net/arp. Incomplete entries are skipped.
func parseProcNetARP(r io.Reader) ([]Neighbor, error) {
	var neighbors []Neighbor

	scanner := bufio.NewScanner(r)
	first := true
	for scanner.Scan() {
		if first {
			first = false
			continue
		}

		fields := strings.Fields(scanner.Text())
		if len(fields) < 6 {
			continue
		}

		addr, err := netip.ParseAddr(fields[0])
		if err != nil {
			continue
		}

		// flags 0x0 means the kernel never got a reply.
		if fields[2] == "0x0" {
			continue
		}

		hw, ok := normalizeLoose(fields[3])
		if !ok {
			continue
		}

		neighbors = append(neighbors, Neighbor{Addr: addr, HardwareAddr: hw, Interface: fields[5]})
	}

	return neighbors, scanner.Err()
}

// parseARPCommand reads the output of `arp -n` (net-tools) or `arp -an` (BSD).
// The first token that parses as an address and the first that parses as a
// hardware address make an entry.
func parseARPCommand(r io.Reader) ([]Neighbor, error) {
	var neighbors []Neighbor

	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		var (
			n            Neighbor
			addrOK, hwOK bool
		)

		for _, field := range strings.Fields(scanner.Text()) {
			field = strings.Trim(field, "()")
			if !addrOK {
				if addr, err := netip.ParseAddr(field); err == nil {
					n.Addr = addr
					addrOK = true
					continue
				}
			}

			if !hwOK {
				if hw, ok := normalizeLoose(field); ok {
					n.HardwareAddr = hw
					hwOK = true
				}
			}
		}

		if addrOK && hwOK {
			neighbors = append(neighbors, n)
		}
	}

	return neighbors, scanner.Err()
}

// normalizeLoose accepts BSD style addresses with single digit octets.
func normalizeLoose(s string) (string, bool) {
	parts := strings.Split(s, ":")
	if len(parts) != 6 {
		return "", false
	}

	for i, p := range parts {
		if len(p) == 1 {
			parts[i] = "0" + p
		}
	}

	hw, err := net.ParseMAC(strings.Join(parts, ":"))
	if err != nil || len(hw) != 6 {
		return "", false
	}

	out := hw.String()
	if out == incompleteHardwareAddr {
		return "", false
	}

	return out, true
}
