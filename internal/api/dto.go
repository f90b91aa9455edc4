package api

import (
	"cto-inventory-backend/internal/model"
	"cto-inventory-backend/internal/parse"
)

type createBoxRequest struct {
	Name             string   `json:"name" binding:"required,max=100"`
	Latitude         *float64 `json:"latitude" binding:"required,min=-90,max=90"`
	Longitude        *float64 `json:"longitude" binding:"required,min=-180,max=180"`
	SplitterType     string   `json:"splitterType" binding:"required,max=10"`
	TotalPorts       int      `json:"totalPorts" binding:"required,min=1,max=32767"`
	Status           string   `json:"status" binding:"omitempty,boxstatus"`
	InstallationDate *string  `json:"installationDate" binding:"omitempty,isodate"`
}

func (r createBoxRequest) toModel() (model.DistributionBox, error) {
	installed, err := optionalDate(r.InstallationDate)
	if err != nil {
		return model.DistributionBox{}, err
	}
	return model.DistributionBox{
		Name:             r.Name,
		Latitude:         *r.Latitude,
		Longitude:        *r.Longitude,
		SplitterType:     r.SplitterType,
		TotalPorts:       r.TotalPorts,
		Status:           model.BoxStatus(r.Status),
		InstallationDate: installed,
	}, nil
}

type patchBoxRequest struct {
	Name             *string  `json:"name" binding:"omitempty,min=1,max=100"`
	Latitude         *float64 `json:"latitude" binding:"omitempty,min=-90,max=90"`
	Longitude        *float64 `json:"longitude" binding:"omitempty,min=-180,max=180"`
	SplitterType     *string  `json:"splitterType" binding:"omitempty,min=1,max=10"`
	TotalPorts       *int     `json:"totalPorts" binding:"omitempty,min=1,max=32767"`
	Status           *string  `json:"status" binding:"omitempty,boxstatus"`
	InstallationDate *string  `json:"installationDate" binding:"omitempty,isodate"`
}

func (r patchBoxRequest) toPatch() (model.BoxPatch, error) {
	installed, err := optionalDate(r.InstallationDate)
	if err != nil {
		return model.BoxPatch{}, err
	}
	p := model.BoxPatch{
		Name:             r.Name,
		Latitude:         r.Latitude,
		Longitude:        r.Longitude,
		SplitterType:     r.SplitterType,
		TotalPorts:       r.TotalPorts,
		InstallationDate: installed,
	}
	if r.Status != nil {
		st := model.BoxStatus(*r.Status)
		p.Status = &st
	}
	return p, nil
}

type createConnectionRequest struct {
	BoxID           string  `json:"ctoId" binding:"required,uuid"`
	PortNumber      int     `json:"portNumber" binding:"required,min=1"`
	ContractID      string  `json:"contractId" binding:"required,max=50"`
	OnuSerialNumber string  `json:"onuSerialNumber" binding:"required,max=100"`
	ConnectionDate  *string `json:"connectionDate" binding:"omitempty,isodate"`
}

func (r createConnectionRequest) toModel() (model.ClientConnection, error) {
	connected, err := optionalDate(r.ConnectionDate)
	if err != nil {
		return model.ClientConnection{}, err
	}
	return model.ClientConnection{
		BoxID:           r.BoxID,
		PortNumber:      r.PortNumber,
		ContractID:      r.ContractID,
		OnuSerialNumber: r.OnuSerialNumber,
		ConnectionDate:  connected,
	}, nil
}

type patchConnectionRequest struct {
	BoxID           *string `json:"ctoId" binding:"omitempty,uuid"`
	PortNumber      *int    `json:"portNumber" binding:"omitempty,min=1"`
	ContractID      *string `json:"contractId" binding:"omitempty,min=1,max=50"`
	OnuSerialNumber *string `json:"onuSerialNumber" binding:"omitempty,min=1,max=100"`
	ConnectionDate  *string `json:"connectionDate" binding:"omitempty,isodate"`
}

func (r patchConnectionRequest) toPatch() (model.ConnectionPatch, error) {
	connected, err := optionalDate(r.ConnectionDate)
	if err != nil {
		return model.ConnectionPatch{}, err
	}
	return model.ConnectionPatch{
		BoxID:           r.BoxID,
		PortNumber:      r.PortNumber,
		ContractID:      r.ContractID,
		OnuSerialNumber: r.OnuSerialNumber,
		ConnectionDate:  connected,
	}, nil
}

// boxResponse adds the parsed splitter output count to a stored box.
type boxResponse struct {
	model.DistributionBox
	SplitterOutputs int `json:"splitterOutputs,omitempty"`
}

func newBoxResponse(b model.DistributionBox) boxResponse {
	return boxResponse{DistributionBox: b, SplitterOutputs: parse.SplitterOutputs(b.SplitterType)}
}

// boxDetailResponse always carries the connection list, empty or not.
type boxDetailResponse struct {
	boxResponse
	Connections []model.ClientConnection `json:"connections"`
}

func newBoxDetailResponse(b model.DistributionBox) boxDetailResponse {
	conns := b.Connections
	if conns == nil {
		conns = []model.ClientConnection{}
	}
	return boxDetailResponse{boxResponse: newBoxResponse(b), Connections: conns}
}
