package hap

import (
	"github.com/boundless-engineering/hap/log"
	"github.com/boundless-engineering/hap/service"

	"net/http"
)

type serviceData struct {
	Iid             uint64                `json:"iid"`
	Type            string                `json:"type"`
	Characteristics []*characteristicData `json:"characteristics"`
	Primary         bool                  `json:"primary,omitempty"`
	Hidden          bool                  `json:"hidden,omitempty"`
	Linked          []uint64              `json:"linked,omitempty"`
}

type accessoryData struct {
	Aid      uint64         `json:"aid"`
	Services []*serviceData `json:"services"`
}

// getAccessories serves the full accessory tree. Values are included
// only for characteristics with the paired-read permission.
func (srv *Server) getAccessories(res http.ResponseWriter, req *http.Request) {
	resp := struct {
		Accessories []*accessoryData `json:"accessories"`
	}{}

	for _, a := range srv.accessories() {
		adata := &accessoryData{
			Aid: a.Id,
		}
		for _, s := range a.Ss {
			adata.Services = append(adata.Services, srv.dataForS(s, req))
		}
		resp.Accessories = append(resp.Accessories, adata)
	}

	log.Debug.Println(toJSON(resp))
	jsonOK(res, resp)
}

func (srv *Server) dataForS(s *service.S, req *http.Request) *serviceData {
	sdata := &serviceData{
		Iid:     s.Id,
		Type:    s.Type,
		Primary: s.Primary,
		Hidden:  s.Hidden,
	}
	for _, linked := range s.Linked {
		sdata.Linked = append(sdata.Linked, linked.Id)
	}

	for _, c := range s.Cs {
		typ := c.Type
		cdata := &characteristicData{
			Iid:         c.Id,
			Type:        &typ,
			Permissions: c.Permissions,
			Format:      &c.Format,
		}
		if c.IsReadable() {
			if v, status := c.ValueRequest(req); status == JsonStatusSuccess {
				cdata.Value = v
			}
		}
		if len(c.Unit) > 0 {
			unit := c.Unit
			cdata.Unit = &unit
		}
		if len(c.Description) > 0 {
			d := c.Description
			cdata.Description = &d
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
			maxLen := c.MaxLen
			cdata.MaxLen = &maxLen
		}
		if c.MaxDataLen > 0 {
			maxDataLen := c.MaxDataLen
			cdata.MaxDataLen = &maxDataLen
		}
		if len(c.ValidVals) > 0 {
			cdata.ValidValues = c.ValidVals
		}
		if len(c.ValidRange) == 2 {
			cdata.ValidRange = c.ValidRange
		}
		sdata.Characteristics = append(sdata.Characteristics, cdata)
	}

	return sdata
}
