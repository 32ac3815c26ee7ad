package api

import (
	"fmt"

	"workroute/internal/model"
)

func validateVendorIn(in *model.VendorIn) error {
	if in.Name == "" {
		return fmt.Errorf("name is required")
	}
	if in.Specialty == "" {
		return fmt.Errorf("specialty is required")
	}
	if in.Availability != "" && in.Availability != model.VendorAvailable && in.Availability != model.VendorUnavailable {
		return fmt.Errorf("invalid availability: %s", in.Availability)
	}
	if in.StandardRate != nil && *in.StandardRate < 0 {
		return fmt.Errorf("standardRate must be >= 0")
	}
	if in.Location != nil {
		if in.Location.Lat < -90 || in.Location.Lat > 90 {
			return fmt.Errorf("location.lat must be in [-90,90]")
		}
		if in.Location.Lng < -180 || in.Location.Lng > 180 {
			return fmt.Errorf("location.lng must be in [-180,180]")
		}
	}
	return nil
}

func validatePropertyIn(in *model.PropertyIn) error {
	if in.ZipCode == "" {
		return fmt.Errorf("zipCode is required")
	}
	if in.Location != nil {
		if in.Location.Lat < -90 || in.Location.Lat > 90 {
			return fmt.Errorf("location.lat must be in [-90,90]")
		}
		if in.Location.Lng < -180 || in.Location.Lng > 180 {
			return fmt.Errorf("location.lng must be in [-180,180]")
		}
	}
	return nil
}

func validateRatingIn(in *model.RatingIn) error {
	if in.VendorID == "" {
		return fmt.Errorf("vendorId is required")
	}
	if in.Score < 0 || in.Score > 5 {
		return fmt.Errorf("score must be in [0,5]")
	}
	return nil
}
