// SPDX-FileCopyrightText: Winni Neessen <wn@neessen.dev>
//
// SPDX-License-Identifier: MIT

package openweathermap

// The raw payload types keep optional JSON fields as pointers, so that a missing
// field can be told apart from a zero value during normalization.

// RawCurrent is the response of the current weather endpoint.
type RawCurrent struct {
	ID       *int64         `json:"id"`
	Name     *string        `json:"name"`
	Coord    *RawCoord      `json:"coord"`
	Weather  []RawCondition `json:"weather"`
	Main     *RawMain       `json:"main"`
	Wind     *RawWind       `json:"wind"`
	Sys      *RawSys        `json:"sys"`
	Dt       *int64         `json:"dt"`
	Timezone int            `json:"timezone"`
}

// RawForecast is the response of the 5 day / 3 hour forecast endpoint.
type RawForecast struct {
	Cnt  int               `json:"cnt"`
	List []RawForecastItem `json:"list"`
	City *RawCity          `json:"city"`
}

type RawForecastItem struct {
	Dt      *int64         `json:"dt"`
	Main    *RawMain       `json:"main"`
	Weather []RawCondition `json:"weather"`
	Wind    *RawWind       `json:"wind"`
	DtTxt   string         `json:"dt_txt"`
}

type RawCoord struct {
	Lat *float64 `json:"lat"`
	Lon *float64 `json:"lon"`
}

type RawCondition struct {
	ID          int    `json:"id"`
	Main        string `json:"main"`
	Description string `json:"description"`
	Icon        string `json:"icon"`
}

type RawMain struct {
	Temp      *float64 `json:"temp"`
	FeelsLike *float64 `json:"feels_like"`
	Humidity  *float64 `json:"humidity"`
	Pressure  *float64 `json:"pressure"`
}

type RawWind struct {
	Speed *float64 `json:"speed"`
	Deg   *float64 `json:"deg"`
}

type RawSys struct {
	Country string `json:"country"`
	Sunrise *int64 `json:"sunrise"`
	Sunset  *int64 `json:"sunset"`
}

type RawCity struct {
	ID       int64    `json:"id"`
	Name     string   `json:"name"`
	Coord    RawCoord `json:"coord"`
	Country  string   `json:"country"`
	Timezone int      `json:"timezone"`
	Sunrise  *int64   `json:"sunrise"`
	Sunset   *int64   `json:"sunset"`
}

// errorBody is the JSON body OpenWeatherMap sends with non-2xx responses. The
// "cod" field is a string or a number depending on the endpoint, so it is ignored.
type errorBody struct {
	Message string `json:"message"`
}
