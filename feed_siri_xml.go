package main

import (
	"bytes"
	"context"
	"encoding/xml"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/weberitsol/school-erp-sub010/livelocation"
)

type SiriXmlVehicleFeedSource struct {
	url        string
	httpClient *http.Client
}

func NewSiriXmlVehicleFeedSource(url string, timeout time.Duration) *SiriXmlVehicleFeedSource {
	return &SiriXmlVehicleFeedSource{
		url:        url,
		httpClient: &http.Client{Timeout: timeout},
	}
}

// Minimal streaming extraction for SIRI VM XML (namespace tolerant via Name.Local)
func (s *SiriXmlVehicleFeedSource) Fetch(ctx context.Context) ([]feedVehicle, error) {
	body, err := fetchBody(ctx, s.httpClient, s.url)
	if err != nil {
		return nil, fmt.Errorf("siri xml: %w", err)
	}
	return decodeSiriXml(bytes.NewReader(body))
}

func decodeSiriXml(r io.Reader) ([]feedVehicle, error) {
	dec := xml.NewDecoder(r)

	var (
		inSiri, inSD, inVMD, inVA, inMVJ, inVL bool
		curID, curTrip, curRecorded            string
		curLat, curLon, curBearing             string
		vehicles                               []feedVehicle
	)

	for {
		tok, err := dec.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		switch se := tok.(type) {
		case xml.StartElement:
			switch se.Name.Local {
			case "Siri":
				inSiri = true
			case "ServiceDelivery":
				if inSiri {
					inSD = true
				}
			case "VehicleMonitoringDelivery":
				if inSD {
					inVMD = true
				}
			case "VehicleActivity":
				if inVMD {
					inVA = true
					curID, curTrip, curRecorded = "", "", ""
					curLat, curLon, curBearing = "", "", ""
				}
			case "MonitoredVehicleJourney":
				if inVA {
					inMVJ = true
				}
			case "VehicleLocation":
				if inMVJ || inVA {
					inVL = true
				}
			case "VehicleRef":
				if inMVJ || inVA {
					var v string
					if err := dec.DecodeElement(&v, &se); err == nil {
						curID = v
					}
				}
			case "RecordedAtTime":
				if inVA && !inMVJ {
					var v string
					if err := dec.DecodeElement(&v, &se); err == nil {
						curRecorded = v
					}
				}
			case "DatedVehicleJourneyRef":
				if inMVJ {
					var v string
					if err := dec.DecodeElement(&v, &se); err == nil {
						curTrip = v
					}
				}
			case "Bearing":
				if inMVJ {
					var v string
					if err := dec.DecodeElement(&v, &se); err == nil {
						curBearing = v
					}
				}
			case "Latitude":
				if inVL {
					var v string
					if err := dec.DecodeElement(&v, &se); err == nil {
						curLat = v
					}
				}
			case "Longitude":
				if inVL {
					var v string
					if err := dec.DecodeElement(&v, &se); err == nil {
						curLon = v
					}
				}
			}
		case xml.EndElement:
			switch se.Name.Local {
			case "VehicleLocation":
				inVL = false
			case "MonitoredVehicleJourney":
				inMVJ = false
			case "VehicleActivity":
				if inVA {
					inVA = false
					if curID != "" && curLat != "" && curLon != "" {
						if latf, lonf, ok := parseLatLon(curLat, curLon); ok {
							sample := livelocation.LocationSample{VehicleID: curID, Latitude: latf, Longitude: lonf}
							sample.Heading, _ = strconv.ParseFloat(curBearing, 64)
							if recorded, err := time.Parse(time.RFC3339, curRecorded); err == nil {
								sample.Timestamp = recorded.UTC()
							}
							vehicles = append(vehicles, feedVehicle{Sample: sample, TripID: curTrip})
						}
					}
				}
			case "VehicleMonitoringDelivery":
				inVMD = false
			case "ServiceDelivery":
				inSD = false
			case "Siri":
				inSiri = false
			}
		}
	}
	return vehicles, nil
}

func parseLatLon(lat, lon string) (float64, float64, bool) {
	lf, err1 := strconv.ParseFloat(lat, 64)
	if err1 != nil {
		return 0, 0, false
	}
	lo, err2 := strconv.ParseFloat(lon, 64)
	if err2 != nil {
		return 0, 0, false
	}
	return lf, lo, true
}
