package api

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/forgeio/gateway/internal/config"
	"github.com/forgeio/gateway/internal/drivers"
)

// defaultNodeID is the root Objects folder, used when a browse request
// omits ?node_id=, matching the prototype's default_node_id().
const defaultNodeID = "ns=0;i=85"

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, HealthResponse{Status: "ok"})
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, StatsResponse{
		UptimeSeconds: s.state.UptimeSeconds(),
		TagCount:      s.state.Table.Count(),
		DriverCount:   s.state.DriverCount(),
	})
}

func (s *Server) handleTags(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.state.Table.AllTags())
}

func (s *Server) handleGetConfig(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.state.Settings.Get())
}

// handlePutConfig replaces the running configuration atomically: it
// persists to disk first and only swaps the in-memory copy on success, per
// spec.md §4.6. Tag/driver registries are not re-derived from the new
// settings until restart (spec.md §9's "first release takes this snapshot
// once" applies here too).
func (s *Server) handlePutConfig(w http.ResponseWriter, r *http.Request) {
	var next config.Settings
	if err := json.NewDecoder(r.Body).Decode(&next); err != nil {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: err.Error()})
		return
	}

	if err := s.state.Settings.Replace(s.configPath, next); err != nil {
		writeJSON(w, http.StatusInternalServerError, ErrorResponse{Error: err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, s.state.Settings.Get())
}

// opcuaDriver resolves driverID and downcasts it to an OPC UA driver via the
// Typed interface. notFoundMsg/wrongTypeMsg are the literal error strings to
// report for each failure mode, since the prototype's two callers (browse,
// discover-tags) word them differently (spec.md §4.5/§9: browse and
// discover-tags are protocol-specific, so a driver that exists but isn't
// OPC UA is a client error, not a server one).
func (s *Server) opcuaDriver(driverID, notFoundMsg, wrongTypeMsg string) (drv drivers.Driver, status int, errMsg string) {
	drv, ok := s.state.Drivers[driverID]
	if !ok {
		s.log.Warn("driver not found", "driver_id", driverID)
		return nil, http.StatusNotFound, notFoundMsg
	}

	if typed, ok := drv.(drivers.Typed); !ok || typed.Type() != drivers.TypeOPCUA {
		s.log.Warn("driver is not an OPC UA driver", "driver_id", driverID)
		return nil, http.StatusBadRequest, wrongTypeMsg
	}
	return drv, 0, ""
}

func (s *Server) handleBrowse(w http.ResponseWriter, r *http.Request) {
	driverID := mux.Vars(r)["driver_id"]
	nodeID := r.URL.Query().Get("node_id")
	if nodeID == "" {
		nodeID = defaultNodeID
	}

	drv, status, errMsg := s.opcuaDriver(driverID,
		fmt.Sprintf("Driver '%s' not found", driverID),
		fmt.Sprintf("Driver '%s' is not an OPC UA driver", driverID))
	if drv == nil {
		writeJSON(w, status, BrowseResponse{NodeID: nodeID, Children: []string{}, Error: errPtr(errMsg)})
		return
	}

	children, err := drv.Browse(r.Context(), nodeID)
	if err != nil {
		s.log.Error("browse failed", "driver_id", driverID, "node_id", nodeID, "error", err)
		writeJSON(w, http.StatusInternalServerError, BrowseResponse{
			NodeID: nodeID, Children: []string{}, Error: errPtr(err.Error()),
		})
		return
	}

	writeJSON(w, http.StatusOK, BrowseResponse{NodeID: nodeID, Children: children})
}

func (s *Server) handleDiscoverDrivers(w http.ResponseWriter, r *http.Request) {
	infos := make([]DriverInfo, 0, len(s.state.Drivers))
	for id, drv := range s.state.Drivers {
		cfg := drv.Config()
		driverType := cfg.DriverType()
		if typed, ok := drv.(drivers.Typed); ok {
			driverType = string(typed.Type())
		}
		infos = append(infos, DriverInfo{
			ID:         id,
			Name:       cfg.Name,
			Address:    cfg.Address,
			Connected:  drv.Status(r.Context()) == nil,
			DriverType: driverType,
		})
	}
	writeJSON(w, http.StatusOK, DiscoverResponse{Drivers: infos})
}

func (s *Server) handleDiscoverTags(w http.ResponseWriter, r *http.Request) {
	driverID := mux.Vars(r)["driver_id"]

	drv, status, errMsg := s.opcuaDriver(driverID, "Driver not found", "Driver is not an OPC UA driver")
	if drv == nil {
		writeJSON(w, status, TagDiscoveryResponse{DriverID: driverID, Tags: []string{}, Error: errPtr(errMsg)})
		return
	}

	found, err := drv.DiscoverTags(r.Context())
	if err != nil {
		s.log.Error("discover tags failed", "driver_id", driverID, "error", err)
		writeJSON(w, http.StatusInternalServerError, TagDiscoveryResponse{
			DriverID: driverID, Tags: []string{}, Error: errPtr(err.Error()),
		})
		return
	}

	writeJSON(w, http.StatusOK, TagDiscoveryResponse{DriverID: driverID, Tags: found})
}
