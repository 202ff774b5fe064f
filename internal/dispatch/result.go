package dispatch

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/tidwall/gjson"
)

// Result is the normalized outcome of a diagnosis backend call.
type Result struct {
	Stage       int      `json:"stage"`
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Advice      []string `json:"advice"`
}

var errMalformed = errors.New("malformed diagnosis response")

// decodeResult reads a backend response. The payload may be bare or wrapped
// under an "analysis" key.
func decodeResult(body []byte) (Result, error) {
	if !gjson.ValidBytes(body) {
		return Result{}, fmt.Errorf("%w: not json", errMalformed)
	}
	root := gjson.ParseBytes(body)
	if wrapped := root.Get("analysis"); wrapped.IsObject() {
		root = wrapped
	}

	stage := root.Get("stage")
	if !stage.Exists() {
		return Result{}, fmt.Errorf("%w: missing stage", errMalformed)
	}
	var stageNum int
	switch stage.Type {
	case gjson.Number:
		stageNum = int(stage.Int())
	case gjson.String:
		n, err := strconv.Atoi(strings.TrimSpace(stage.String()))
		if err != nil {
			return Result{}, fmt.Errorf("%w: stage %q is not a number", errMalformed, stage.String())
		}
		stageNum = n
	default:
		return Result{}, fmt.Errorf("%w: stage has unexpected type", errMalformed)
	}

	res := Result{
		Stage:       stageNum,
		Title:       strings.TrimSpace(root.Get("title").String()),
		Description: strings.TrimSpace(root.Get("description").String()),
	}
	for _, item := range root.Get("advice").Array() {
		if text := strings.TrimSpace(item.String()); text != "" {
			res.Advice = append(res.Advice, text)
		}
	}
	return res, nil
}
