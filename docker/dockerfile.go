package docker

import (
	"bufio"
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"
)

// ParseDockerfilePorts scans a Dockerfile for EXPOSE directives and returns
// the declared ports deduplicated in ascending order. A Dockerfile without
// any EXPOSE lines yields an empty list, not an error. Port specs may carry a
// protocol suffix (8080/tcp) and one EXPOSE line may list several ports.
func ParseDockerfilePorts(path string) ([]int, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open Dockerfile: %w", err)
	}
	defer file.Close()

	seen := make(map[int]bool)

	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		fields := strings.Fields(line)
		if len(fields) < 2 || !strings.EqualFold(fields[0], "EXPOSE") {
			continue
		}
		for _, spec := range fields[1:] {
			portStr, _, _ := strings.Cut(spec, "/")
			port, err := strconv.Atoi(portStr)
			if err != nil || port < 1 || port > 65535 {
				continue
			}
			seen[port] = true
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read Dockerfile: %w", err)
	}

	ports := make([]int, 0, len(seen))
	for port := range seen {
		ports = append(ports, port)
	}
	sort.Ints(ports)
	return ports, nil
}
