package hap

import (
	"github.com/boundless-engineering/hap/accessory"
	"github.com/boundless-engineering/hap/characteristic"
	"github.com/boundless-engineering/hap/log"
	"github.com/xiam/to"

	"encoding/json"
	"net/http"
	"strings"
)

type characteristicData struct {
	Aid   uint64      `json:"aid,omitempty"`
	Iid   uint64      `json:"iid"`
	Value interface{} `json:"value,omitempty"`

	// optional values
	Type        *string     `json:"type,omitempty"`
	Permissions []string    `json:"perms,omitempty"`
	Status      *int        `json:"status,omitempty"`
	Events      *bool       `json:"ev,omitempty"`
	Format      *string     `json:"format,omitempty"`
	Unit        *string     `json:"unit,omitempty"`
	Description *string     `json:"description,omitempty"`
	MinValue    interface{} `json:"minValue,omitempty"`
	MaxValue    interface{} `json:"maxValue,omitempty"`
	MinStep     interface{} `json:"minStep,omitempty"`
	MaxLen      *int        `json:"maxLen,omitempty"`
	MaxDataLen  *int        `json:"maxDataLen,omitempty"`
	ValidValues []int       `json:"valid-values,omitempty"`
	ValidRange  []int       `json:"valid-values-range,omitempty"`

	Remote   *bool `json:"remote,omitempty"`
	Response *bool `json:"r,omitempty"`
}

func (srv *Server) getCharacteristics(res http.ResponseWriter, req *http.Request) {
	// id=1.4,1.5
	v := req.FormValue("id")
	if len(v) == 0 {
		jsonError(res, JsonStatusInvalidValueInRequest)
		return
	}

	meta := req.FormValue("meta") == "1"
	perms := req.FormValue("perms") == "1"
	typ := req.FormValue("type") == "1"
	ev := req.FormValue("ev") == "1"

	arr := []*characteristicData{}
	errs := false
	for _, str := range strings.Split(v, ",") {
		ids := strings.Split(str, ".")
		if len(ids) != 2 {
			continue
		}
		cdata := &characteristicData{
			Aid: to.Uint64(ids[0]),
			Iid: to.Uint64(ids[1]),
		}
		arr = append(arr, cdata)

		c := srv.findC(cdata.Aid, cdata.Iid)
		if c == nil {
			errs = true
			status := JsonStatusResourceDoesNotExist
			cdata.Status = &status
			continue
		}

		value, status := c.ValueRequest(req)
		if status != JsonStatusSuccess {
			errs = true
			cdata.Status = &status
		} else {
			cdata.Value = value
			s := JsonStatusSuccess
			cdata.Status = &s
		}

		if meta {
			cdata.Format = &c.Format
			if len(c.Unit) > 0 {
				cdata.Unit = &c.Unit
			}
			if len(c.Description) > 0 {
				cdata.Description = &c.Description
			}
			if c.MinVal != nil {
				cdata.MinValue = c.MinVal
			}
			if c.MaxVal != nil {
				cdata.MaxValue = c.MaxVal
			}
			if c.StepVal != nil {
				cdata.MinStep = c.StepVal
			}
			if c.MaxLen > 0 {
				cdata.MaxLen = &c.MaxLen
			}
			if c.MaxDataLen > 0 {
				cdata.MaxDataLen = &c.MaxDataLen
			}
			if len(c.ValidVals) > 0 {
				cdata.ValidValues = c.ValidVals
			}
			if len(c.ValidRange) == 2 {
				cdata.ValidRange = c.ValidRange
			}
		}

		// Should the response include the events flag?
		if ev {
			subscribed := c.Subscribed(req.RemoteAddr)
			cdata.Events = &subscribed
		}

		if perms {
			cdata.Permissions = c.Permissions
		}

		if typ {
			cdata.Type = &c.Type
		}
	}

	resp := struct {
		Characteristics []*characteristicData `json:"characteristics"`
	}{arr}

	log.Debug.Println(toJSON(resp))

	if errs {
		jsonMultiStatus(res, resp)
	} else {
		// successful reads carry no per-item status
		for _, cdata := range arr {
			cdata.Status = nil
		}
		jsonOK(res, resp)
	}
}

func (srv *Server) putCharacteristics(res http.ResponseWriter, req *http.Request) {
	data := struct {
		Cs []characteristicData `json:"characteristics"`
	}{}
	err := json.NewDecoder(req.Body).Decode(&data)
	if err != nil {
		jsonError(res, JsonStatusInvalidValueInRequest)
		return
	}

	log.Debug.Println(toJSON(data))

	arr := []*characteristicData{}
	errs := false
	for _, d := range data.Cs {
		c := srv.findC(d.Aid, d.Iid)
		cdata := &characteristicData{
			Aid: d.Aid,
			Iid: d.Iid,
		}
		arr = append(arr, cdata)
		status := JsonStatusSuccess

		if c == nil {
			errs = true
			status = JsonStatusResourceDoesNotExist
			cdata.Status = &status
			continue
		}

		if d.Value != nil {
			if _, s := c.SetValueRequest(d.Value, req); s != JsonStatusSuccess {
				errs = true
				status = s
			}
		}

		if d.Events != nil && status == JsonStatusSuccess {
			if !c.IsObservable() {
				errs = true
				status = JsonStatusNotificationNotSupported
			} else {
				c.SetSubscribed(req.RemoteAddr, *d.Events)
			}
		}

		if d.Response != nil && *d.Response && status == JsonStatusSuccess {
			v, s := c.ValueRequest(req)
			if s == JsonStatusSuccess {
				cdata.Value = v
			}
		}

		cdata.Status = &status
	}

	if !errs {
		res.WriteHeader(http.StatusNoContent)
		return
	}

	resp := struct {
		Characteristics []*characteristicData `json:"characteristics"`
	}{arr}

	log.Debug.Println(toJSON(resp))
	jsonMultiStatus(res, resp)
}

func (srv *Server) findC(aid, iid uint64) *characteristic.C {
	for _, a := range srv.accessories() {
		if a.Id == aid {
			for _, s := range a.Ss {
				for _, c := range s.Cs {
					if c.Id == iid {
						return c
					}
				}
			}
		}
	}

	return nil
}

func (srv *Server) accessories() []*accessory.A {
	var as []*accessory.A
	as = append(as, srv.a)
	as = append(as, srv.as[:]...)

	return as
}
