package ai

import (
	"fmt"
	"image"
	"os"

	"plateserver/internal/service/ai/yolo"

	"gocv.io/x/gocv"
)

// NetworkOptions locate a darknet model and set its post-processing thresholds.
type NetworkOptions struct {
	WeightsPath string
	ConfigPath  string
	Names       []string
	InputSize   int
	Confidence  float32
	NMS         float32
}

// Network is a darknet YOLO model loaded through OpenCV's dnn module.
type Network struct {
	net        gocv.Net
	outputs    []string
	names      []string
	inputSize  image.Point
	confidence float32
	nms        float32
}

// LoadNetwork reads the weights and cfg files and resolves the output layers.
func LoadNetwork(opts NetworkOptions) (*Network, error) {
	if _, err := os.Stat(opts.WeightsPath); os.IsNotExist(err) {
		return nil, fmt.Errorf("weights file not found: %s", opts.WeightsPath)
	}

	if _, err := os.Stat(opts.ConfigPath); os.IsNotExist(err) {
		return nil, fmt.Errorf("config file not found: %s", opts.ConfigPath)
	}

	net := gocv.ReadNet(opts.WeightsPath, opts.ConfigPath)
	if net.Empty() {
		return nil, fmt.Errorf("failed to load network from %s", opts.WeightsPath)
	}

	errBackend := net.SetPreferableBackend(gocv.NetBackendDefault)
	errTarget := net.SetPreferableTarget(gocv.NetTargetCPU)
	if errBackend != nil || errTarget != nil {
		net.Close()
		return nil, fmt.Errorf("failed to set preferable backend or target")
	}

	outputs := outputLayerNames(net)
	if len(outputs) == 0 {
		net.Close()
		return nil, fmt.Errorf("network %s has no output layers", opts.ConfigPath)
	}

	return &Network{
		net:        net,
		outputs:    outputs,
		names:      opts.Names,
		inputSize:  image.Pt(opts.InputSize, opts.InputSize),
		confidence: opts.Confidence,
		nms:        opts.NMS,
	}, nil
}

// Detect runs a forward pass on mat and returns the boxes left after
// thresholding and non-maximum suppression, in mat's pixel space.
func (n *Network) Detect(mat gocv.Mat) ([]yolo.Detection, error) {
	if mat.Empty() {
		return nil, fmt.Errorf("input image is empty")
	}

	blob := gocv.BlobFromImage(mat, 1.0/255.0, n.inputSize, gocv.NewScalar(0, 0, 0, 0), true, false)
	defer blob.Close()

	n.net.SetInput(blob, "")

	outputs := n.net.ForwardLayers(n.outputs)
	defer func() {
		for i := range outputs {
			outputs[i].Close()
		}
	}()

	var rows [][]float32
	for _, out := range outputs {
		cols := out.Cols()
		for i := 0; i < out.Rows(); i++ {
			row := make([]float32, cols)
			for j := range row {
				row[j] = out.GetFloatAt(i, j)
			}
			rows = append(rows, row)
		}
	}

	detections := yolo.ParseOutput(rows, mat.Cols(), mat.Rows(), n.confidence, n.names)
	return yolo.NMS(detections, n.nms), nil
}

func (n *Network) Close() error {
	return n.net.Close()
}

func outputLayerNames(net gocv.Net) []string {
	layerNames := net.GetLayerNames()

	var outputLayers []string
	for _, i := range net.GetUnconnectedOutLayers() {
		if i > 0 && i-1 < len(layerNames) {
			outputLayers = append(outputLayers, layerNames[i-1])
		}
	}
	return outputLayers
}

// readMat loads an image file as a BGR matrix. The caller closes it on success.
func readMat(path string) (gocv.Mat, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return gocv.Mat{}, fmt.Errorf("failed to read image: %w", err)
	}

	mat, err := gocv.IMDecode(data, gocv.IMReadColor)
	if err != nil {
		return gocv.Mat{}, fmt.Errorf("failed to decode image: %v", err)
	}
	if mat.Empty() {
		mat.Close()
		return gocv.Mat{}, fmt.Errorf("decoded image is empty")
	}
	return mat, nil
}
