package yolo

import (
	"bufio"
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"
)

// LoadClassNames reads a darknet .names file, one label per line.
func LoadClassNames(path string) ([]string, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open class names: %w", err)
	}
	defer file.Close()

	var names []string
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		names = append(names, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read class names: %w", err)
	}
	if len(names) == 0 {
		return nil, fmt.Errorf("class names file %s is empty", path)
	}
	return names, nil
}

// Label returns the class name for id, or the id itself when no name is known.
func Label(names []string, id int) string {
	if id >= 0 && id < len(names) {
		return names[id]
	}
	return strconv.Itoa(id)
}

// SortLeftToRight orders detections by the left edge of their box, then top edge.
func SortLeftToRight(detections []Detection) {
	sort.SliceStable(detections, func(i, j int) bool {
		a, b := detections[i].Box.Min, detections[j].Box.Min
		if a.X != b.X {
			return a.X < b.X
		}
		return a.Y < b.Y
	})
}

// JoinLabels concatenates the labels of detections in their current order.
func JoinLabels(detections []Detection) string {
	var sb strings.Builder
	for _, d := range detections {
		sb.WriteString(d.Label)
	}
	return sb.String()
}
