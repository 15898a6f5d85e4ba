// Copyright (C) 2020 Markus L. Noga
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU General Public License for more details.
//
// You should have received a copy of the GNU General Public License
// along with this program.  If not, see <https://www.gnu.org/licenses/>.



// Package cosmo converts physical sizes to angles for a flat Lambda-CDM universe.
package cosmo

import (
	"math"

	"gonum.org/v1/gonum/integrate/quad"
)

const (
	speedOfLight  = 299792.458     // km/s
	arcsecPerRad  = 206264.806247
	kpcPerMpc     = 1000
	quadPoints    = 64             // Gauss-Legendre nodes for the comoving distance integral
)

// A flat Lambda-CDM model with photon and massless neutrino radiation
type FlatLambdaCDM struct {
	H0    float64  // Hubble constant in km/s/Mpc
	Om0   float64  // matter density today
	Tcmb0 float64  // CMB temperature today in K, zero for no radiation
	Neff  float64  // effective number of neutrino species
}

// Planck 2015 parameters
var Planck15=FlatLambdaCDM{H0: 67.74, Om0: 0.3075, Tcmb0: 2.7255, Neff: 3.046}

// Radiation density today
func (c FlatLambdaCDM) Or0() float64 {
	if c.Tcmb0==0 { return 0 }
	h:=c.H0/100
	ogamma:=2.4728e-5*math.Pow(c.Tcmb0/2.7255, 4)/(h*h)
	return ogamma*(1+0.2271*c.Neff)
}

// Dimensionless Hubble parameter H(z)/H0
func (c FlatLambdaCDM) E(z float64) float64 {
	or0:=c.Or0()
	ode0:=1-c.Om0-or0
	zp1:=1+z
	return math.Sqrt(c.Om0*zp1*zp1*zp1 + or0*zp1*zp1*zp1*zp1 + ode0)
}

// Hubble distance c/H0 in Mpc
func (c FlatLambdaCDM) HubbleDistance() float64 {
	return speedOfLight/c.H0
}

// Line of sight comoving distance to redshift z in Mpc
func (c FlatLambdaCDM) ComovingDistance(z float64) float64 {
	if z<=0 { return 0 }
	integrand:=func(x float64) float64 { return 1/c.E(x) }
	return c.HubbleDistance()*quad.Fixed(integrand, 0, z, quadPoints, nil, 0)
}

// Angular diameter distance to redshift z in Mpc
func (c FlatLambdaCDM) AngularDiameterDistance(z float64) float64 {
	return c.ComovingDistance(z)/(1+z)
}

// Angular size in arcseconds of one proper kiloparsec at redshift z
func (c FlatLambdaCDM) ArcsecPerKpcProper(z float64) float64 {
	return arcsecPerRad/(c.AngularDiameterDistance(z)*kpcPerMpc)
}

// Converts a proper size in kpc at redshift z to degrees
func (c FlatLambdaCDM) KpcToDeg(kpc, z float64) float64 {
	return kpc*c.ArcsecPerKpcProper(z)/3600
}

// Converts a proper size in kpc at redshift z to pixels of the given scale in arcsec
func (c FlatLambdaCDM) KpcToPixels(kpc, z, pixScale float64) float64 {
	return kpc*c.ArcsecPerKpcProper(z)/pixScale
}

// Converts pixels of the given scale in arcsec to a proper size in kpc at redshift z
func (c FlatLambdaCDM) PixelsToKpc(pix, z, pixScale float64) float64 {
	return pix*pixScale/c.ArcsecPerKpcProper(z)
}
