/*
 Licensed under the Apache License, Version 2.0 (the "License");
 you may not use this file except in compliance with the License.
 You may obtain a copy of the License at

     https://www.apache.org/licenses/LICENSE-2.0

 Unless required by applicable law or agreed to in writing, software
 distributed under the License is distributed on an "AS IS" BASIS,
 WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 See the License for the specific language governing permissions and
 limitations under the License.
*/

package command

import (
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/imroc/req"

	"soest.hawaii.edu/hioos/go-storx/pkg/calibration"
	"soest.hawaii.edu/hioos/go-storx/pkg/config"
	"soest.hawaii.edu/hioos/go-storx/pkg/pipeline"
	"soest.hawaii.edu/hioos/go-storx/pkg/srv"
)

type ApiClient struct {
	ApiPrefix string
}

func NewApiClient(cfg *config.Config) *ApiClient {
	return &ApiClient{
		ApiPrefix: fmt.Sprintf("http://%s/api", cfg.ApiAddress()),
	}
}

func (c *ApiClient) decodeUrl(source string) string {
	return fmt.Sprintf("%s/decode?%s", c.ApiPrefix, url.Values{"source": {source}}.Encode())
}

func (c *ApiClient) recordsUrl(serial string, limit int) string {
	u := fmt.Sprintf("%s/records/%s", c.ApiPrefix, url.PathEscape(serial))
	if limit > 0 {
		u += "?limit=" + strconv.Itoa(limit)
	}
	return u
}

func (c *ApiClient) calibrationsUrl(serial string) string {
	return fmt.Sprintf("%s/calibrations/%s", c.ApiPrefix, url.PathEscape(serial))
}

func checkStatus(r *req.Resp) error {
	if r.Response().StatusCode != http.StatusOK {
		return fmt.Errorf("%s: %s", r.Response().Status, strings.TrimSpace(r.String()))
	}
	return nil
}

// Decode sends raw stream bytes to the server and returns the decoded records
func (c *ApiClient) Decode(source string, data []byte) (*srv.DecodeResult, error) {
	r, err := req.Post(c.decodeUrl(source), req.Header{"Content-Type": "application/octet-stream"}, data)
	if err != nil {
		return nil, err
	}
	if err := checkStatus(r); err != nil {
		return nil, err
	}
	result := &srv.DecodeResult{}
	if err := r.ToJSON(result); err != nil {
		return nil, err
	}
	return result, nil
}

// Records sends request to get the latest stored records of an instrument
func (c *ApiClient) Records(serial string, limit int) ([]*pipeline.Record, error) {
	r, err := req.Get(c.recordsUrl(serial, limit))
	if err != nil {
		return nil, err
	}
	if err := checkStatus(r); err != nil {
		return nil, err
	}
	var records []*pipeline.Record
	if err := r.ToJSON(&records); err != nil {
		return nil, err
	}
	return records, nil
}

// Serials sends request to get the serial numbers with stored records
func (c *ApiClient) Serials() ([]string, error) {
	r, err := req.Get(c.ApiPrefix + "/records")
	if err != nil {
		return nil, err
	}
	if err := checkStatus(r); err != nil {
		return nil, err
	}
	var serials []string
	if err := r.ToJSON(&serials); err != nil {
		return nil, err
	}
	return serials, nil
}

// Calibrations sends request to get the calibrations the server applies to an instrument
func (c *ApiClient) Calibrations(serial string) ([]*calibration.Calibration, error) {
	r, err := req.Get(c.calibrationsUrl(serial))
	if err != nil {
		return nil, err
	}
	if err := checkStatus(r); err != nil {
		return nil, err
	}
	var calibrations []*calibration.Calibration
	if err := r.ToJSON(&calibrations); err != nil {
		return nil, err
	}
	return calibrations, nil
}
